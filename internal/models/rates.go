package models

// Fallback rates used when the backend settings payload is empty or partial.
const (
	DefaultPricePerKwh       = 0.25
	DefaultCO2FactorKgPerKwh = 0.4
	DefaultEfficiencyFactor  = 0.06
	DefaultCurrency          = "EUR"
)

// RateConfig holds the billing/emission factors. Loaded once at controller
// start and shared read-only; a settings reload replaces the whole value.
type RateConfig struct {
	Currency         string  `json:"currency"`
	PricePerKwh      float64 `json:"price_per_kwh"`     // >= 0
	CO2Factor        float64 `json:"co2_factor"`        // kg CO2 per kWh, >= 0
	EfficiencyFactor float64 `json:"efficiency_factor"` // >= 0
}

// DefaultRates returns the fallback configuration.
func DefaultRates() RateConfig {
	return RateConfig{
		Currency:         DefaultCurrency,
		PricePerKwh:      DefaultPricePerKwh,
		CO2Factor:        DefaultCO2FactorKgPerKwh,
		EfficiencyFactor: DefaultEfficiencyFactor,
	}
}

// Sanitize clamps every factor to be non-negative and fills missing values
// with the defaults, so a malformed settings response can never produce
// negative costs.
func (r RateConfig) Sanitize() RateConfig {
	if r.Currency == "" {
		r.Currency = DefaultCurrency
	}
	if r.PricePerKwh <= 0 {
		r.PricePerKwh = DefaultPricePerKwh
	}
	if r.CO2Factor <= 0 {
		r.CO2Factor = DefaultCO2FactorKgPerKwh
	}
	if r.EfficiencyFactor < 0 {
		r.EfficiencyFactor = DefaultEfficiencyFactor
	}
	return r
}
