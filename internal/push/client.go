package push

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"energy_dashboard/internal/logger"
	"energy_dashboard/internal/models"

	"github.com/gorilla/websocket"
)

// Timing and size limits for the push connection.
const (
	writeWait       = 10 * time.Second
	pongWait        = 60 * time.Second
	pingPeriod      = (pongWait * 9) / 10
	maxMsgSize      = 1 << 20 // 1 MB; energy_update carries a full history series
	dialTimeout     = 10 * time.Second
	eventBufferSize = 8
)

const eventEnergyUpdate = "energy_update"

// Event is one energy_update push: a refreshed history series plus the
// current stat figures.
type Event struct {
	History []models.CostPoint
	Stats   models.AggregateResult
}

// Subscriber holds one websocket subscription to the backend push channel.
// It is established once per session; Close is idempotent.
type Subscriber struct {
	conn   *websocket.Conn
	log    *logger.Logger
	events chan Event

	closeOnce sync.Once
	done      chan struct{}
}

// Dial connects to the push channel and starts the read loop.
func Dial(ctx context.Context, url string, log *logger.Logger) (*Subscriber, error) {
	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial push channel %q: %w", url, err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	s := &Subscriber{
		conn:   conn,
		log:    log,
		events: make(chan Event, eventBufferSize),
		done:   make(chan struct{}),
	}

	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go s.readLoop()
	go s.pingLoop()
	return s, nil
}

// Events yields decoded energy_update events. The channel is closed when the
// connection drops or Close is called.
func (s *Subscriber) Events() <-chan Event {
	return s.events
}

// Close tears down the subscription. Safe to call more than once.
func (s *Subscriber) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		_ = s.conn.Close()
	})
}

// envelope mirrors the backend's websocket message framing.
type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

func (s *Subscriber) readLoop() {
	defer close(s.events)
	defer s.Close()
	for {
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.done:
			default:
				s.log.Infow("push_read_closed", "err", err)
			}
			return
		}

		var env envelope
		if err := json.Unmarshal(msg, &env); err != nil {
			s.log.Errorw("push_bad_envelope", "err", err)
			continue
		}
		if env.Type != eventEnergyUpdate {
			continue
		}

		ev, err := decodeEvent(env.Data)
		if err != nil {
			s.log.Errorw("push_bad_event", "err", err)
			continue
		}
		select {
		case s.events <- ev:
		case <-s.done:
			return
		default:
			// Consumer is behind; drop rather than block the read loop.
			s.log.Debugw("push_event_dropped")
		}
	}
}

func (s *Subscriber) pingLoop() {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ping.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.log.Infow("push_ping_failed", "err", err)
				s.Close()
				return
			}
		}
	}
}

func decodeEvent(data json.RawMessage) (Event, error) {
	var payload struct {
		History [][]any        `json:"history"`
		Stats   map[string]any `json:"stats"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return Event{}, fmt.Errorf("decode energy_update: %w", err)
	}
	return Event{
		History: models.SeriesFromWire(payload.History),
		Stats:   models.AggregateFromWire(payload.Stats),
	}, nil
}
