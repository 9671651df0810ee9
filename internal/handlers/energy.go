package handlers

import (
	"errors"
	"net/http"
	"time"

	"energy_dashboard/internal/backend"
	"energy_dashboard/internal/models"
	"energy_dashboard/internal/service"

	"github.com/gin-gonic/gin"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK      = "ok"
	statusModeSet = "mode_set"
	statusClosed  = "closed"

	errGetYears        = "failed to load available years"
	errBackendGateway  = "backend unreachable or returned bad data"
	errStaleDiscarded  = "response discarded: mode changed while loading"
	errInvalidBodyPref = "invalid body: "

	layoutDate = "2006-01-02"
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// Request DTO for switching view mode.
type modeRequest struct {
	Mode           string `json:"mode" binding:"required"` // realtime | today | day | range
	TickIntervalMs int    `json:"tick_interval_ms,omitempty"`
	FromTime       string `json:"from_time,omitempty"` // "HH:MM", today only
	ToTime         string `json:"to_time,omitempty"`   // "HH:MM", today only
	Day            string `json:"day,omitempty"`       // "YYYY-MM-DD", day only
	RangeFrom      string `json:"range_from,omitempty"`
	RangeTo        string `json:"range_to,omitempty"`
}

// SetModeRequest is an exported model for Swagger docs of the setMode payload.
type SetModeRequest struct {
	// Mode to set. Allowed: realtime, today, day, range
	Mode string `json:"mode" example:"day"`
	// Polling interval in milliseconds (realtime only, clamped to 1s..60s)
	TickIntervalMs int `json:"tick_interval_ms,omitempty" example:"1000"`
	// Window start as HH:MM (today only)
	FromTime string `json:"from_time,omitempty" example:"00:00"`
	// Window end as HH:MM (today only)
	ToTime string `json:"to_time,omitempty" example:"14:30"`
	// Calendar day as YYYY-MM-DD (day only)
	Day string `json:"day,omitempty" example:"2026-08-29"`
	// Range start as YYYY-MM-DD (range only)
	RangeFrom string `json:"range_from,omitempty" example:"2026-08-01"`
	// Range end as YYYY-MM-DD (range only)
	RangeTo string `json:"range_to,omitempty" example:"2026-08-29"`
}

// DrillDownRequest selects a chart point to expand into a finer series.
type DrillDownRequest struct {
	// Unix-millisecond timestamp of the selected point
	TimestampMs int64 `json:"timestamp_ms" example:"1756425600000"`
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      Current energy summary
// @Description  Returns the latest aggregate figures, the view mode and display-formatted values.
// @Tags         energy
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/v1/energy/summary [get]
func (h *Handler) getSummary(c *gin.Context) {
	snap := h.services.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"generation": snap.Generation,
		"mode":       snap.Mode,
		"layout":     snap.Layout,
		"stats":      snap.Stats,
		"display":    displayValues(snap),
		"smoothed":   snap.Smoothed,
		"drilldown":  snap.DrillDown,
		"notices":    snap.Notices,
		"updated_at": snap.UpdatedAt,
	})
}

// displayValues renders the headline figures with the unit and precision
// rules of the active mode: live views show instantaneous watts and
// four-decimal cost, historical views show accumulated energy and
// two-decimal cost.
func displayValues(snap service.Snapshot) gin.H {
	currency := snap.Rates.Currency
	if snap.Mode.Mode == models.ModeRealTime {
		return gin.H{
			"power": service.FormatPowerW(snap.Stats.TotalEnergyWh),
			"cost":  service.FormatCostLive(snap.Stats.TotalCost, currency),
			"co2":   service.FormatCO2Kg(snap.Stats.CO2Kg),
			"load":  service.FormatLoadPercent(snap.Stats.AvgLoadPercent),
		}
	}
	return gin.H{
		"energy": service.FormatEnergyWh(snap.Stats.TotalEnergyWh),
		"cost":   service.FormatCostTotal(snap.Stats.TotalCost, currency),
		"co2":    service.FormatCO2Kg(snap.Stats.CO2Kg),
		"load":   service.FormatLoadPercent(snap.Stats.AvgLoadPercent),
	}
}

// @Summary      Cost distribution by period of day
// @Description  Four diurnal buckets (morning, afternoon, evening, night) plus their total.
// @Tags         energy
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "buckets, total"
// @Router       /api/v1/energy/distribution [get]
func (h *Handler) getDistribution(c *gin.Context) {
	snap := h.services.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"buckets": snap.Buckets,
		"total":   snap.BucketTotal,
		"display": gin.H{
			"total": service.FormatCostTotal(snap.BucketTotal, snap.Rates.Currency),
		},
	})
}

// @Summary      Years with recorded data
// @Tags         energy
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "years"
// @Failure      502  {object}  map[string]string
// @Router       /api/v1/energy/years [get]
func (h *Handler) getYears(c *gin.Context) {
	years, err := h.services.Years(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusBadGateway, errGetYears, "years_fetch_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"years": years})
}

// @Summary      Switch view mode
// @Description  realtime needs no extra fields; today takes optional from_time/to_time; day requires day; range requires range_from and range_to.
// @Tags         energy
// @Accept       json
// @Produce      json
// @Param        body  body   SetModeRequest  true  "Mode payload"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Router       /api/v1/energy/mode [post]
func (h *Handler) setMode(c *gin.Context) {
	var req modeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	state, err := modeStateFromRequest(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.services.SwitchMode(c.Request.Context(), state); err != nil {
		if h.log != nil {
			h.log.Errorw("mode_switch_failed", "err", err, "mode", req.Mode)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	snap := h.services.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"status":     statusModeSet,
		"mode":       snap.Mode,
		"layout":     snap.Layout,
		"generation": snap.Generation,
	})
}

// modeStateFromRequest translates the wire DTO into the engine's mode state,
// parsing calendar fields eagerly so malformed input fails before any fetch.
func modeStateFromRequest(req modeRequest) (models.ModeState, error) {
	state := models.ModeState{
		Mode:     models.Mode(req.Mode),
		FromTime: req.FromTime,
		ToTime:   req.ToTime,
	}
	if !state.Mode.Valid() {
		return models.ModeState{}, errors.New("unknown mode: " + req.Mode)
	}
	if req.TickIntervalMs > 0 {
		state.TickInterval = time.Duration(req.TickIntervalMs) * time.Millisecond
	}
	var err error
	if state.Day, err = parseDateField(req.Day, "day"); err != nil {
		return models.ModeState{}, err
	}
	if state.RangeFrom, err = parseDateField(req.RangeFrom, "range_from"); err != nil {
		return models.ModeState{}, err
	}
	if state.RangeTo, err = parseDateField(req.RangeTo, "range_to"); err != nil {
		return models.ModeState{}, err
	}
	return state, nil
}

func parseDateField(s, name string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(layoutDate, s, time.Local)
	if err != nil {
		return time.Time{}, errors.New("invalid '" + name + "': use YYYY-MM-DD")
	}
	return t, nil
}

// @Summary      Open drill-down
// @Description  Expands the selected historical point: a range-mode day opens hour detail, an hour opens minute detail. Selecting at minute level is a no-op.
// @Tags         energy
// @Accept       json
// @Produce      json
// @Param        body  body   DrillDownRequest  true  "Selected point"
// @Success      200   {object}  map[string]interface{}  "context, series"
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Router       /api/v1/energy/drilldown [post]
func (h *Handler) openDrillDown(c *gin.Context) {
	var req DrillDownRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	drill, series, err := h.services.OpenDrillDown(c.Request.Context(), req.TimestampMs)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrStale):
			c.JSON(http.StatusConflict, gin.H{"error": errStaleDiscarded})
		case errors.Is(err, backend.ErrNetwork), errors.Is(err, backend.ErrMalformed):
			h.logAndJSONError(c, http.StatusBadGateway, errBackendGateway, "drilldown_fetch_failed", err, "ts", req.TimestampMs)
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"context": drill,
		"series":  series,
	})
}

// @Summary      Close drill-down
// @Tags         energy
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /api/v1/energy/drilldown [delete]
func (h *Handler) closeDrillDown(c *gin.Context) {
	h.services.CloseDrillDown()
	c.JSON(http.StatusOK, gin.H{"status": statusClosed})
}
