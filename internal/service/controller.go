package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"energy_dashboard/internal/backend"
	"energy_dashboard/internal/chart"
	"energy_dashboard/internal/config"
	"energy_dashboard/internal/logger"
	"energy_dashboard/internal/models"
	"energy_dashboard/internal/push"
	"energy_dashboard/internal/repository"

	"github.com/google/uuid"
)

// Fetch slots. At most one request per slot is in flight; a newer request
// for the same slot cancels the prior one instead of queuing behind it.
const (
	slotMode   = "mode"
	slotSample = "sample"
	slotDrill  = "drill"
)

const (
	noticeTTL      = 10 * time.Second
	maxLiveNotices = 10
	uiTickPeriod   = 1 * time.Second
	sampleTimeout  = 5 * time.Second
	persistTimeout = 3 * time.Second
)

// BackendAPI is the slice of the HTTP client the controller consumes.
type BackendAPI interface {
	EnergyData(ctx context.Context, q backend.Query) (models.AggregateResult, error)
	CostTrend(ctx context.Context, q backend.Query) ([]models.CostPoint, error)
	Detailed(ctx context.Context, from, to time.Time, detail models.Granularity) ([]models.CostPoint, error)
	AvailableYears(ctx context.Context) ([]int, error)
	Variables(ctx context.Context) (models.RateConfig, error)
	LatestSample(ctx context.Context) (models.Sample, error)
}

// PushSource is an established push-channel subscription.
type PushSource interface {
	Events() <-chan push.Event
	Close()
}

// Snapshot is the published read model. Handlers and websocket clients read
// it; only the controller mutates the underlying state.
type Snapshot struct {
	Generation  uint64                   `json:"generation"`
	Mode        models.ModeState         `json:"mode"`
	Layout      models.Layout            `json:"layout"`
	Rates       models.RateConfig        `json:"rates"`
	Stats       models.AggregateResult   `json:"stats"`
	Buckets     []models.Bucket          `json:"buckets"`
	BucketTotal float64                  `json:"bucket_total"`
	Smoothed    *models.CostPoint        `json:"smoothed,omitempty"`
	DrillDown   *models.DrillDownContext `json:"drilldown,omitempty"`
	Notices     []models.Notification    `json:"notices,omitempty"`
	UpdatedAt   time.Time                `json:"updated_at"`
}

// Controller orchestrates the analytics engine: it owns the mode state, the
// single chart adapter, the smoothing window and the generation counter, and
// is the sole mutator of all of them.
type Controller struct {
	log   *logger.Logger
	api   BackendAPI
	pushc PushSource
	sink  chart.Sink
	repo  *repository.Repository
	cfg   config.Config
	clock func() time.Time

	gen atomic.Uint64

	fetchMu  sync.Mutex
	runCtx   context.Context
	fetchSeq uint64
	fetches  map[string]fetchHandle

	mu          sync.RWMutex
	costs       *CostModel
	resolver    *TimeRangeResolver
	smoothing   *SmoothingBuffer
	drill       *DrillDownFetcher
	adapter     chart.Adapter
	discrete    *chart.DiscreteAdapter
	rendered    bool
	drillCtx    *models.DrillDownContext
	drillSeries []models.CostPoint
	stats       models.AggregateResult
	buckets     []models.Bucket
	bucketTotal float64
	lastPowerW  float64
	smoothed    *models.CostPoint
	notices     []models.Notification
	updatedAt   time.Time
	rtStop      chan struct{}
}

// NewController wires the collaborators. pushc may be nil when the push
// channel could not be established; polling still works without it.
func NewController(api BackendAPI, pushc PushSource, sink chart.Sink, repo *repository.Repository, cfg config.Config, log *logger.Logger, clock func() time.Time) *Controller {
	if clock == nil {
		clock = time.Now
	}
	costs := NewCostModel(models.DefaultRates())
	c := &Controller{
		log:       log,
		api:       api,
		pushc:     pushc,
		sink:      sink,
		repo:      repo,
		cfg:       cfg,
		clock:     clock,
		runCtx:    context.Background(),
		fetches:   make(map[string]fetchHandle),
		costs:     costs,
		resolver:  NewTimeRangeResolver(clock),
		smoothing: NewSmoothingBuffer(cfg.SmoothingSize, costs),
		drill:     NewDrillDownFetcher(api),
	}
	buckets, total := BucketsFromDistribution(nil)
	c.buckets, c.bucketTotal = buckets, total
	return c
}

// Run performs startup (stored snapshot, rates, initial-mode probe) and then
// services the 1 Hz clock and the push channel until ctx is canceled.
func (c *Controller) Run(ctx context.Context) {
	c.fetchMu.Lock()
	c.runCtx = ctx
	c.fetchMu.Unlock()

	c.restoreSnapshot(ctx)
	c.loadRates(ctx)
	c.enterInitialMode(ctx)

	uiTick := time.NewTicker(uiTickPeriod)
	defer uiTick.Stop()

	var events <-chan push.Event
	if c.pushc != nil {
		events = c.pushc.Events()
	}

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return
		case <-uiTick.C:
			c.expireNotices()
		case ev, ok := <-events:
			if !ok {
				events = nil
				c.log.Infow("push_channel_closed")
				continue
			}
			c.applyPushEvent(ev)
		}
	}
}

// restoreSnapshot shows the last persisted figures until the first fresh
// fetch completes.
func (c *Controller) restoreSnapshot(ctx context.Context) {
	stored, err := c.repo.Snapshots.Load(ctx)
	if err != nil {
		c.log.Errorw("snapshot_load_failed", "err", err)
		return
	}
	if stored.ID == 0 {
		return
	}
	c.mu.Lock()
	c.stats = stored.Stats
	c.costs = NewCostModel(stored.Rates)
	c.buckets, c.bucketTotal = BucketsFromDistribution(stored.Stats.Distribution)
	c.updatedAt = stored.UpdatedAt
	c.mu.Unlock()
}

// loadRates fetches the billing factors once at startup. Failures fall back
// to the defaults (or the restored snapshot's rates) with a notice.
func (c *Controller) loadRates(ctx context.Context) {
	rates, err := c.api.Variables(ctx)
	if err != nil {
		c.notify(kindFor(err), fmt.Sprintf("settings unavailable, using fallback rates: %v", err))
		return
	}
	c.mu.Lock()
	c.costs = NewCostModel(rates)
	c.smoothing = NewSmoothingBuffer(c.cfg.SmoothingSize, c.costs)
	c.mu.Unlock()
}

// enterInitialMode probes today's aggregate and enters Today when any energy
// or load was recorded, RealTime otherwise.
func (c *Controller) enterInitialMode(ctx context.Context) {
	probe, err := c.api.EnergyData(ctx, c.resolver.ProbeQuery())
	if err != nil {
		c.notify(kindFor(err), fmt.Sprintf("startup probe failed: %v", err))
		probe = models.AggregateResult{}
	}
	state := c.resolver.InitialState(probe, c.cfg.TickInterval)
	if err := c.SwitchMode(ctx, state); err != nil {
		c.log.Errorw("initial_mode_failed", "err", err, "mode", state.Mode)
	}
}

// SwitchMode performs the transition protocol: bump the generation (which
// invalidates every outstanding response), cancel in-flight fetches, tear
// down the previous adapter and tick, activate the new adapter, then issue
// the new state's initial work.
func (c *Controller) SwitchMode(ctx context.Context, next models.ModeState) error {
	c.mu.Lock()
	prev := c.resolver.Current()
	state, err := c.resolver.Transition(next)
	if err != nil {
		c.mu.Unlock()
		return err
	}

	gen := c.gen.Add(1)
	c.cancelAllFetches()
	c.stopRealtimeLocked()
	if c.adapter != nil {
		c.adapter.Dispose()
		c.adapter, c.discrete = nil, nil
	}
	c.rendered = false
	c.smoothing.Clear()
	c.smoothed = nil
	c.drillCtx = nil
	c.drillSeries = nil

	if state.Mode == models.ModeRealTime {
		sa := chart.NewStreamingAdapter(c.sink, chart.StreamingConfig{
			Currency:     c.costs.Currency(),
			Window:       c.cfg.StreamWindow,
			TickInterval: state.TickInterval,
			RefreshDelay: c.cfg.RefreshDelay,
			AxisFloor:    c.cfg.AxisFloor,
			PowerMediumW: c.cfg.PowerMediumW,
			PowerHighW:   c.cfg.PowerHighW,
		}, c.smoothedLatest, c.lastPower, c.clock)
		c.adapter = sa
		c.startRealtimeLocked(state.TickInterval, gen)
	} else {
		da := chart.NewDiscreteAdapter(c.sink, c.costs.Currency(), c.clock)
		c.adapter, c.discrete = da, da
	}
	adapter := c.adapter
	c.mu.Unlock()

	if state.Mode == models.ModeRealTime {
		if err := adapter.Render(chart.Dataset{}); err != nil {
			c.log.Errorw("render_failed", "err", err, "mode", state.Mode)
			c.notify(models.NoticeRenderFailure, "live chart failed to start")
		} else {
			c.mu.Lock()
			c.rendered = true
			c.mu.Unlock()
		}
	} else {
		go c.fetchHistorical(gen, state)
	}

	if prev.Mode != "" && prev.Mode != state.Mode {
		c.notify(models.NoticeModeChange, fmt.Sprintf("display mode changed to %s", state.Mode))
	}
	return nil
}

// fetchHistorical loads the aggregate and trend series for a historical
// state and renders them, unless the response went stale in flight.
func (c *Controller) fetchHistorical(gen uint64, state models.ModeState) {
	ctx, done := c.slotContext(slotMode)
	defer done()

	q := c.resolver.QueryFor(state)
	agg, err := c.api.EnergyData(ctx, q)
	if err != nil {
		c.reportFetchError(gen, err)
		return
	}
	trend, err := c.api.CostTrend(ctx, q)
	if err != nil {
		c.reportFetchError(gen, err)
		return
	}
	if agg.Trends == nil {
		agg.Trends = c.deriveTrends(ctx, state, agg)
	}
	if c.gen.Load() != gen {
		return // stale response, silently dropped
	}

	buckets, total := c.bucketsFor(agg, trend)

	c.mu.Lock()
	if c.gen.Load() != gen {
		c.mu.Unlock()
		return
	}
	c.stats = agg
	c.buckets, c.bucketTotal = buckets, total
	c.updatedAt = c.clock()
	adapter := c.adapter
	first := !c.rendered
	c.rendered = true
	c.mu.Unlock()

	if adapter == nil {
		return
	}
	ds := chart.Dataset{Series: trend, Buckets: buckets, TotalCost: total}
	if first {
		err = adapter.Render(ds)
	} else {
		err = adapter.Update(ds)
	}
	if errors.Is(err, chart.ErrDisposed) {
		return // adapter torn down by a mode transition while we rendered
	}
	if err != nil {
		// fatal for this render cycle only
		c.log.Errorw("render_failed", "err", err, "mode", state.Mode)
		c.notify(models.NoticeRenderFailure, "historical chart render failed")
		return
	}
	c.persistSnapshot(state.Mode, agg)
}

// deriveTrends recomputes the stat-card deltas against the window of equal
// length immediately preceding the current one, for payloads that omit them.
func (c *Controller) deriveTrends(ctx context.Context, state models.ModeState, current models.AggregateResult) *models.Trends {
	q, ok := c.resolver.PreviousQuery(state)
	if !ok {
		return &models.Trends{}
	}
	prev, err := c.api.EnergyData(ctx, q)
	if err != nil {
		c.log.Debugw("previous_period_unavailable", "err", err)
		return &models.Trends{}
	}
	return &models.Trends{
		Energy: TrendPercent(current.TotalEnergyWh, prev.TotalEnergyWh),
		Cost:   TrendPercent(current.TotalCost, prev.TotalCost),
		Load:   TrendPercent(current.AvgLoadPercent, prev.AvgLoadPercent),
		CO2:    TrendPercent(current.CO2Kg, prev.CO2Kg),
	}
}

// bucketsFor prefers the backend's own distribution and falls back to
// grouping the trend series by hour of day when the payload omits it.
func (c *Controller) bucketsFor(agg models.AggregateResult, series []models.CostPoint) ([]models.Bucket, float64) {
	if agg.Distribution == nil && len(series) > 0 {
		return BucketsFromSeries(series, c.clock().Location())
	}
	return BucketsFromDistribution(agg.Distribution)
}

// startRealtimeLocked launches the sampling tick. Caller holds c.mu.
func (c *Controller) startRealtimeLocked(interval time.Duration, gen uint64) {
	stop := make(chan struct{})
	c.rtStop = stop
	go c.realtimeLoop(interval, gen, stop)
}

// stopRealtimeLocked silences the sampling tick. Caller holds c.mu.
func (c *Controller) stopRealtimeLocked() {
	if c.rtStop != nil {
		close(c.rtStop)
		c.rtStop = nil
	}
}

// realtimeLoop consumes one cached UPS reading per tick, feeds the smoothing
// window and refreshes the live stat figures.
func (c *Controller) realtimeLoop(interval time.Duration, gen uint64, stop chan struct{}) {
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		select {
		case <-stop:
			return
		case <-tick.C:
			c.sampleOnce(gen)
		}
	}
}

func (c *Controller) sampleOnce(gen uint64) {
	ctx, done := c.slotContext(slotSample)
	defer done()
	ctx, cancel := context.WithTimeout(ctx, sampleTimeout)
	defer cancel()

	sample, err := c.api.LatestSample(ctx)
	if err != nil {
		c.reportFetchError(gen, err)
		return
	}
	if c.gen.Load() != gen {
		return // tick superseded by a mode transition
	}

	c.mu.Lock()
	if c.gen.Load() != gen {
		c.mu.Unlock()
		return
	}
	power := sample.RealPowerW
	if power <= 0 && sample.NominalPowerW > 0 {
		// nominal-power fallback when the driver reports no direct reading
		power = EffectivePowerW(sample.NominalPowerW, sample.LoadPercent)
	}
	c.lastPowerW = power
	ts := sample.Timestamp
	if ts.IsZero() {
		ts = c.clock()
	}
	smoothed := c.smoothing.Consume(ts, power)
	c.smoothed = &smoothed
	c.stats = c.realtimeStats(sample, power)
	c.updatedAt = c.clock()
	c.mu.Unlock()
}

// realtimeStats prices a single live reading for the stat cards. Caller
// holds c.mu.
func (c *Controller) realtimeStats(sample models.Sample, powerW float64) models.AggregateResult {
	energyKwh := powerW / 1000
	return models.AggregateResult{
		TotalEnergyWh:  powerW, // live view shows W, not Wh
		TotalCost:      c.costs.InstantCost(powerW),
		AvgLoadPercent: sample.LoadPercent,
		CO2Kg:          c.costs.CO2FromEnergyKwh(energyKwh),
		SavedCost:      c.costs.SavedFromEnergyKwh(energyKwh),
		NominalPowerW:  sample.NominalPowerW,
		Trends:         &models.Trends{},
	}
}

// applyPushEvent folds an energy_update into the chart and stat cards. The
// generation captured on arrival guards against events raced by a mode
// transition.
func (c *Controller) applyPushEvent(ev push.Event) {
	gen := c.gen.Load()

	c.mu.Lock()
	if c.gen.Load() != gen {
		c.mu.Unlock()
		return
	}
	c.stats = ev.Stats
	c.buckets, c.bucketTotal = c.bucketsFor(ev.Stats, ev.History)
	c.updatedAt = c.clock()
	adapter := c.adapter
	historical := c.resolver.Current().Mode.Historical()
	rendered := c.rendered
	buckets, total := c.buckets, c.bucketTotal
	mode := c.resolver.Current().Mode
	c.mu.Unlock()

	if !historical || adapter == nil || !rendered {
		return
	}
	ds := chart.Dataset{Series: ev.History, Buckets: buckets, TotalCost: total}
	if err := adapter.Update(ds); err != nil {
		c.log.Errorw("render_failed", "err", err, "source", "push")
		return
	}
	c.persistSnapshot(mode, ev.Stats)
}

// OpenDrillDown plans and fetches finer detail for a selected chart point.
// It returns ok=false (with no fetch) when the selection is a no-op, e.g.
// while minute detail is already showing.
func (c *Controller) OpenDrillDown(ctx context.Context, timestampMs int64) (models.DrillDownContext, []models.CostPoint, error) {
	c.mu.Lock()
	if c.discrete == nil {
		c.mu.Unlock()
		return models.DrillDownContext{}, nil, errors.New("drill-down requires a historical view")
	}
	t, ok := c.selectedLocked(timestampMs)
	if !ok {
		c.mu.Unlock()
		return models.DrillDownContext{}, nil, fmt.Errorf("no rendered point at %d", timestampMs)
	}
	mode := c.resolver.Current().Mode
	plan, ok := c.drill.Plan(mode, t, c.drillCtx)
	if !ok {
		current := *c.drillCtx
		c.mu.Unlock()
		return current, nil, nil // already at minute detail
	}
	gen := c.gen.Load()
	c.mu.Unlock()

	fetchCtx, done := c.slotContext(slotDrill)
	defer done()
	series, err := c.drill.Fetch(fetchCtx, plan)
	if err != nil {
		c.reportFetchError(gen, err)
		return models.DrillDownContext{}, nil, err
	}
	if c.gen.Load() != gen {
		return models.DrillDownContext{}, nil, ErrStale
	}

	c.mu.Lock()
	if c.gen.Load() != gen {
		c.mu.Unlock()
		return models.DrillDownContext{}, nil, ErrStale
	}
	c.drillCtx = &plan
	c.drillSeries = series
	c.mu.Unlock()
	return plan, series, nil
}

// selectedLocked resolves a point-selection to its timestamp. While detail is
// showing, selections target the drill series, not the top-level trend: the
// hour-to-minute step picks a point of the hour series. Caller holds c.mu.
func (c *Controller) selectedLocked(timestampMs int64) (time.Time, bool) {
	if c.drillCtx != nil {
		for _, p := range c.drillSeries {
			if p.TimestampMs == timestampMs {
				return time.UnixMilli(timestampMs), true
			}
		}
		return time.Time{}, false
	}
	return c.discrete.Selected(timestampMs)
}

// CloseDrillDown discards the drill-down context; reopening fetches fresh.
func (c *Controller) CloseDrillDown() {
	c.cancelFetch(slotDrill)
	c.mu.Lock()
	c.drillCtx = nil
	c.drillSeries = nil
	c.mu.Unlock()
}

// Years proxies the backend's available-years listing.
func (c *Controller) Years(ctx context.Context) ([]int, error) {
	return c.api.AvailableYears(ctx)
}

// Snapshot assembles the published read model.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	state := c.resolver.Current()
	snap := Snapshot{
		Generation:  c.gen.Load(),
		Mode:        state,
		Layout:      models.LayoutFor(state.Mode),
		Rates:       c.costs.Rates(),
		Stats:       c.stats,
		Buckets:     append([]models.Bucket(nil), c.buckets...),
		BucketTotal: c.bucketTotal,
		Notices:     append([]models.Notification(nil), c.notices...),
		UpdatedAt:   c.updatedAt,
	}
	if c.smoothed != nil {
		s := *c.smoothed
		snap.Smoothed = &s
	}
	if c.drillCtx != nil {
		d := *c.drillCtx
		snap.DrillDown = &d
	}
	return snap
}

// ErrStale marks a response that arrived after the mode it was fetched for
// had already been replaced.
var ErrStale = errors.New("stale response")

// reportFetchError surfaces transient failures once, unless the response is
// already stale, in which case it is dropped without a trace.
func (c *Controller) reportFetchError(gen uint64, err error) {
	if c.gen.Load() != gen || errors.Is(err, context.Canceled) {
		return
	}
	c.notify(kindFor(err), err.Error())
}

// kindFor maps a backend error to its notification kind.
func kindFor(err error) string {
	if errors.Is(err, backend.ErrMalformed) {
		return models.NoticeMalformedResponse
	}
	return models.NoticeNetworkFailure
}

// notify records a transient user-visible notice and appends it to the
// persistent notification log.
func (c *Controller) notify(kind, message string) {
	n := models.Notification{
		ID:         uuid.NewString(),
		OccurredAt: c.clock().UTC(),
		Kind:       kind,
		Message:    message,
	}
	c.log.Infow("notice", "kind", kind, "msg", message)

	c.mu.Lock()
	c.notices = append(c.notices, n)
	if len(c.notices) > maxLiveNotices {
		c.notices = c.notices[len(c.notices)-maxLiveNotices:]
	}
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := c.repo.Notices.Append(ctx, n); err != nil {
		c.log.Errorw("notice_persist_failed", "err", err)
	}
}

// expireNotices drops transient notices past their TTL.
func (c *Controller) expireNotices() {
	cutoff := c.clock().Add(-noticeTTL)
	c.mu.Lock()
	kept := c.notices[:0]
	for _, n := range c.notices {
		if n.OccurredAt.After(cutoff) {
			kept = append(kept, n)
		}
	}
	c.notices = kept
	c.mu.Unlock()
}

// persistSnapshot stores the last-good figures for the next restart.
func (c *Controller) persistSnapshot(mode models.Mode, stats models.AggregateResult) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	err := c.repo.Snapshots.Save(ctx, models.StoredSnapshot{
		ID:        1,
		Mode:      mode,
		Stats:     stats,
		Rates:     c.costs.Rates(),
		UpdatedAt: c.clock().UTC(),
	})
	if err != nil {
		c.log.Errorw("snapshot_persist_failed", "err", err)
	}
}

// smoothedLatest feeds the streaming adapter's periodic refresh.
func (c *Controller) smoothedLatest() (models.CostPoint, bool) {
	c.mu.RLock()
	buf := c.smoothing
	c.mu.RUnlock()
	return buf.Latest()
}

// lastPower feeds the streaming adapter's border emphasis.
func (c *Controller) lastPower() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastPowerW
}

type fetchHandle struct {
	cancel context.CancelFunc
	id     uint64
}

// slotContext cancels any prior fetch in the slot and registers a new one.
// runCtx is read under fetchMu; Run may store it concurrently.
func (c *Controller) slotContext(slot string) (context.Context, func()) {
	c.fetchMu.Lock()
	ctx, cancel := context.WithCancel(c.runCtx)
	c.fetchSeq++
	id := c.fetchSeq
	if prev, ok := c.fetches[slot]; ok {
		prev.cancel()
	}
	c.fetches[slot] = fetchHandle{cancel: cancel, id: id}
	c.fetchMu.Unlock()
	return ctx, func() {
		c.fetchMu.Lock()
		if cur, ok := c.fetches[slot]; ok && cur.id == id {
			delete(c.fetches, slot)
		}
		c.fetchMu.Unlock()
		cancel()
	}
}

func (c *Controller) cancelFetch(slot string) {
	c.fetchMu.Lock()
	if h, ok := c.fetches[slot]; ok {
		h.cancel()
		delete(c.fetches, slot)
	}
	c.fetchMu.Unlock()
}

func (c *Controller) cancelAllFetches() {
	c.fetchMu.Lock()
	for slot, h := range c.fetches {
		h.cancel()
		delete(c.fetches, slot)
	}
	c.fetchMu.Unlock()
}

func (c *Controller) shutdown() {
	if c.pushc != nil {
		c.pushc.Close()
	}
	c.cancelAllFetches()
	c.mu.Lock()
	c.stopRealtimeLocked()
	if c.adapter != nil {
		c.adapter.Dispose()
		c.adapter, c.discrete = nil, nil
	}
	c.mu.Unlock()
}
