package service

import (
	"fmt"

	"energy_dashboard/internal/models"
)

// Trend clamp bounds, in percent. Matches the stat-card contract: a freshly
// powered-on UPS must not display a five-digit spike.
const (
	trendMinPercent = -100
	trendMaxPercent = 1000
)

const wattsPerKilowatt = 1000.0

// CostModel converts power and energy figures into cost and CO2 figures
// using a fixed RateConfig. All methods are pure; a settings reload builds
// a new CostModel rather than mutating this one.
type CostModel struct {
	rates models.RateConfig
}

// NewCostModel binds a sanitized rate configuration.
func NewCostModel(rates models.RateConfig) *CostModel {
	return &CostModel{rates: rates.Sanitize()}
}

// Rates returns the bound configuration.
func (m *CostModel) Rates() models.RateConfig { return m.rates }

// Currency returns the display currency code.
func (m *CostModel) Currency() string { return m.rates.Currency }

// EnergyWh is the energy drawn by a constant power over a duration in hours.
func EnergyWh(powerW, hours float64) float64 {
	return powerW * hours
}

// CostFromEnergyWh prices an energy amount given in Wh.
func (m *CostModel) CostFromEnergyWh(energyWh float64) float64 {
	return (energyWh / wattsPerKilowatt) * m.rates.PricePerKwh
}

// EffectivePowerW derives the instantaneous draw from the rated power and
// the load percentage, for samples that carry no direct power reading.
func EffectivePowerW(nominalW, loadPercent float64) float64 {
	return nominalW * (models.ClampLoad(loadPercent) / 100)
}

// CostPerHourFromPower prices one hour of the given effective draw. It goes
// through CostFromEnergyWh so the two paths can never disagree.
func (m *CostModel) CostPerHourFromPower(nominalW, loadPercent float64) float64 {
	return m.CostFromEnergyWh(EnergyWh(EffectivePowerW(nominalW, loadPercent), 1))
}

// InstantCost prices a single live power reading on a per-hour basis.
func (m *CostModel) InstantCost(powerW float64) float64 {
	return m.CostFromEnergyWh(EnergyWh(powerW, 1))
}

// CO2FromEnergyKwh is the emitted mass for an energy amount in kWh.
func (m *CostModel) CO2FromEnergyKwh(energyKwh float64) float64 {
	return energyKwh * m.rates.CO2Factor
}

// SavedFromEnergyKwh is the estimated saving for an energy amount in kWh.
func (m *CostModel) SavedFromEnergyKwh(energyKwh float64) float64 {
	return energyKwh * m.rates.EfficiencyFactor
}

// TrendPercent is the percentage delta between a current and previous value,
// rounded to one decimal and clamped to [-100, 1000]. Near-zero previous
// values yield 0 to avoid division blow-ups.
func TrendPercent(current, previous float64) float64 {
	if previous == 0 {
		return 0
	}
	if current < 0.001 && previous < 0.001 {
		return 0
	}
	t := roundHalfUp(((current-previous)/previous)*100, 1)
	if t < trendMinPercent {
		return trendMinPercent
	}
	if t > trendMaxPercent {
		return trendMaxPercent
	}
	return t
}

// Display formatting. Values below 1000 render in the base unit; larger
// values are divided by 1000 and take the kilo prefix. Historical totals use
// Wh/kWh, live readings use W. Costs take 2 decimals for totals and 4 for
// live display.

// FormatEnergyWh renders a historical energy total.
func FormatEnergyWh(wh float64) string {
	if wh >= wattsPerKilowatt {
		return fmt.Sprintf("%.2f kWh", wh/wattsPerKilowatt)
	}
	return fmt.Sprintf("%.2f Wh", wh)
}

// FormatPowerW renders a live power reading.
func FormatPowerW(w float64) string {
	if w >= wattsPerKilowatt {
		return fmt.Sprintf("%.2f kW", w/wattsPerKilowatt)
	}
	return fmt.Sprintf("%.2f W", w)
}

// FormatCostTotal renders an aggregate cost.
func FormatCostTotal(v float64, currency string) string {
	return fmt.Sprintf("%.2f %s", v, currency)
}

// FormatCostLive renders an instantaneous cost.
func FormatCostLive(v float64, currency string) string {
	return fmt.Sprintf("%.4f %s", v, currency)
}

// FormatCO2Kg renders an emissions total.
func FormatCO2Kg(kg float64) string {
	return fmt.Sprintf("%.2f kg", kg)
}

// FormatLoadPercent renders an average load figure.
func FormatLoadPercent(pct float64) string {
	return fmt.Sprintf("%.1f%%", pct)
}
