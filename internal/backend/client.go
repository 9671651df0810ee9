package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"energy_dashboard/internal/models"
)

// Error kinds the controller discriminates on. Wrapped with %w so callers
// use errors.Is.
var (
	ErrNetwork   = errors.New("backend unreachable")
	ErrMalformed = errors.New("malformed backend response")
)

// Backend API paths, matching the UPS monitor's REST surface.
const (
	pathEnergyData     = "/api/energy/data"
	pathCostTrend      = "/api/energy/cost-trend"
	pathDetailed       = "/api/energy/detailed"
	pathAvailableYears = "/api/energy/available-years"
	pathVariables      = "/api/settings/variables"
	pathUPSCache       = "/api/ups/cache"
)

// Query names a time range for the aggregate and trend endpoints.
type Query struct {
	Type     models.Mode
	FromTime string // "HH:MM" for today, "YYYY-MM-DD" for day/range
	ToTime   string
}

// Client consumes the UPS backend's energy API over HTTP. All requests are
// idempotent GETs and honor the caller's context.
type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a Client against the given base URL.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// PushURL derives the websocket push-channel URL from the backend base URL.
func (c *Client) PushURL() string {
	u := c.baseURL + "/ws"
	u = strings.Replace(u, "https://", "wss://", 1)
	return strings.Replace(u, "http://", "ws://", 1)
}

// EnergyData fetches the aggregate figures for a query.
func (c *Client) EnergyData(ctx context.Context, q Query) (models.AggregateResult, error) {
	params := url.Values{}
	params.Set("type", string(q.Type))
	if q.FromTime != "" {
		params.Set("from_time", q.FromTime)
	}
	if q.ToTime != "" {
		params.Set("to_time", q.ToTime)
	}

	var raw map[string]any
	if err := c.getJSON(ctx, pathEnergyData, params, &raw); err != nil {
		return models.AggregateResult{}, err
	}
	return models.AggregateFromWire(raw), nil
}

// CostTrend fetches the (timestamp, cost) series for a query.
func (c *Client) CostTrend(ctx context.Context, q Query) ([]models.CostPoint, error) {
	params := url.Values{}
	params.Set("type", string(q.Type))
	if q.FromTime != "" {
		params.Set("from_time", q.FromTime)
	}
	if q.ToTime != "" {
		params.Set("to_time", q.ToTime)
	}
	return c.getSeries(ctx, pathCostTrend, params)
}

// Detailed fetches a finer-granularity series for a drill-down window.
func (c *Client) Detailed(ctx context.Context, from, to time.Time, detail models.Granularity) ([]models.CostPoint, error) {
	params := url.Values{}
	params.Set("from_time", from.Format(time.RFC3339))
	params.Set("to_time", to.Format(time.RFC3339))
	params.Set("detail_type", string(detail))
	return c.getSeries(ctx, pathDetailed, params)
}

// AvailableYears lists the years the backend holds data for.
func (c *Client) AvailableYears(ctx context.Context) ([]int, error) {
	var years []int
	if err := c.getJSON(ctx, pathAvailableYears, nil, &years); err != nil {
		return nil, err
	}
	return years, nil
}

// Variables fetches the billing/emission factors, falling back to defaults
// for any missing field.
func (c *Client) Variables(ctx context.Context) (models.RateConfig, error) {
	var resp struct {
		Success bool           `json:"success"`
		Data    map[string]any `json:"data"`
	}
	if err := c.getJSON(ctx, pathVariables, nil, &resp); err != nil {
		return models.RateConfig{}, err
	}
	if !resp.Success {
		return models.RateConfig{}, fmt.Errorf("%w: variables request not successful", ErrMalformed)
	}
	rc := models.RateConfig{
		PricePerKwh:      models.AsFloat(resp.Data["price_per_kwh"]),
		CO2Factor:        models.AsFloat(resp.Data["co2_factor"]),
		EfficiencyFactor: models.AsFloat(resp.Data["efficiency_factor"]),
	}
	if cur, ok := resp.Data["currency"].(string); ok {
		rc.Currency = cur
	}
	return rc.Sanitize(), nil
}

// LatestSample returns the most recent cached UPS reading. The cache payload
// is a data array whose second element carries the telemetry fields.
func (c *Client) LatestSample(ctx context.Context) (models.Sample, error) {
	var resp struct {
		Success bool              `json:"success"`
		Data    []json.RawMessage `json:"data"`
	}
	if err := c.getJSON(ctx, pathUPSCache, nil, &resp); err != nil {
		return models.Sample{}, err
	}
	if !resp.Success || len(resp.Data) == 0 {
		return models.Sample{}, fmt.Errorf("%w: empty ups cache", ErrMalformed)
	}

	entry := resp.Data[len(resp.Data)-1]
	if len(resp.Data) >= 2 {
		entry = resp.Data[1]
	}
	var fields map[string]any
	if err := json.Unmarshal(entry, &fields); err != nil {
		return models.Sample{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	s := models.Sample{
		Timestamp:     models.ParseTimestamp(fields["timestamp"]),
		RealPowerW:    models.AsFloat(fields["ups_realpower"]),
		LoadPercent:   models.AsFloat(fields["ups_load"]),
		BatteryCharge: models.AsFloat(fields["battery_charge"]),
		NominalPowerW: models.AsFloat(fields["ups_realpower_nominal"]),
	}
	s.Normalize()
	return s, nil
}

// getSeries handles the {success, series:[[ts,cost],...]} envelope shared by
// the trend and detail endpoints.
func (c *Client) getSeries(ctx context.Context, path string, params url.Values) ([]models.CostPoint, error) {
	var resp struct {
		Success bool    `json:"success"`
		Series  [][]any `json:"series"`
	}
	if err := c.getJSON(ctx, path, params, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("%w: series request not successful", ErrMalformed)
	}

	return models.SeriesFromWire(resp.Series), nil
}

// getJSON performs one GET and decodes the body. Transport failures map to
// ErrNetwork, undecodable bodies to ErrMalformed.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	endpoint, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("build backend url: %w", err)
	}
	if params != nil {
		endpoint.RawQuery = params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("create backend request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %s", ErrNetwork, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}
