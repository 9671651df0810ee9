package service

import (
	"math"
	"testing"

	"energy_dashboard/internal/models"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCostModel_CostFromEnergyWh(t *testing.T) {
	t.Parallel()

	m := NewCostModel(models.RateConfig{PricePerKwh: 0.30, Currency: "EUR"})

	tests := []struct {
		name     string
		energyWh float64
		want     float64
	}{
		{name: "one kWh costs one price unit", energyWh: 1000, want: 0.30},
		{name: "half kWh", energyWh: 500, want: 0.15},
		{name: "zero energy", energyWh: 0, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.CostFromEnergyWh(tt.energyWh); !almostEqual(got, tt.want) {
				t.Fatalf("CostFromEnergyWh(%v) = %v, want %v", tt.energyWh, got, tt.want)
			}
		})
	}
}

func TestCostModel_PathsAgree(t *testing.T) {
	t.Parallel()

	// CostPerHourFromPower must be indistinguishable from manually chaining
	// the effective-power, energy and pricing steps.
	m := NewCostModel(models.RateConfig{PricePerKwh: 0.25, Currency: "EUR"})

	nominal, load := 480.0, 42.0
	direct := m.CostPerHourFromPower(nominal, load)
	chained := m.CostFromEnergyWh(EnergyWh(EffectivePowerW(nominal, load), 1))
	if !almostEqual(direct, chained) {
		t.Fatalf("CostPerHourFromPower = %v, chained = %v", direct, chained)
	}
}

func TestEffectivePowerW_ClampsLoad(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		nominal float64
		load    float64
		want    float64
	}{
		{name: "half load", nominal: 1000, load: 50, want: 500},
		{name: "load above 100 clamped", nominal: 1000, load: 250, want: 1000},
		{name: "negative load clamped to zero", nominal: 1000, load: -5, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EffectivePowerW(tt.nominal, tt.load); !almostEqual(got, tt.want) {
				t.Fatalf("EffectivePowerW(%v, %v) = %v, want %v", tt.nominal, tt.load, got, tt.want)
			}
		})
	}
}

func TestTrendPercent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		current  float64
		previous float64
		want     float64
	}{
		{name: "simple growth", current: 150, previous: 100, want: 50},
		{name: "decline", current: 75, previous: 100, want: -25},
		{name: "zero previous yields zero", current: 10, previous: 0, want: 0},
		{name: "both near zero yields zero", current: 0.0004, previous: 0.0002, want: 0},
		{name: "clamped at upper bound", current: 1000, previous: 1, want: 1000},
		{name: "full drop pins the lower bound", current: 0, previous: 50, want: -100},
		{name: "rounded to one decimal", current: 1.0 / 3.0, previous: 1, want: -66.7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TrendPercent(tt.current, tt.previous); !almostEqual(got, tt.want) {
				t.Fatalf("TrendPercent(%v, %v) = %v, want %v", tt.current, tt.previous, got, tt.want)
			}
		})
	}
}

func TestCostModel_SanitizesRates(t *testing.T) {
	t.Parallel()

	// Invalid rates fall back to the documented defaults instead of
	// propagating zeros into every cost figure.
	m := NewCostModel(models.RateConfig{PricePerKwh: -1, CO2Factor: 0, EfficiencyFactor: -0.5})
	r := m.Rates()
	def := models.DefaultRates()

	if r.PricePerKwh != def.PricePerKwh {
		t.Errorf("PricePerKwh = %v, want default %v", r.PricePerKwh, def.PricePerKwh)
	}
	if r.CO2Factor != def.CO2Factor {
		t.Errorf("CO2Factor = %v, want default %v", r.CO2Factor, def.CO2Factor)
	}
	if r.EfficiencyFactor != def.EfficiencyFactor {
		t.Errorf("EfficiencyFactor = %v, want default %v", r.EfficiencyFactor, def.EfficiencyFactor)
	}
	if r.Currency == "" {
		t.Error("Currency empty after sanitize")
	}
}

func TestFormatters(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		got  string
		want string
	}{
		{name: "energy below threshold", got: FormatEnergyWh(987.654), want: "987.65 Wh"},
		{name: "energy at threshold", got: FormatEnergyWh(1000), want: "1.00 kWh"},
		{name: "power below threshold", got: FormatPowerW(350), want: "350.00 W"},
		{name: "power above threshold", got: FormatPowerW(1500), want: "1.50 kW"},
		{name: "total cost two decimals", got: FormatCostTotal(1.2345, "EUR"), want: "1.23 EUR"},
		{name: "live cost four decimals", got: FormatCostLive(0.00123, "EUR"), want: "0.0012 EUR"},
		{name: "co2", got: FormatCO2Kg(2.5), want: "2.50 kg"},
		{name: "load", got: FormatLoadPercent(42.25), want: "42.2%"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Fatalf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}
