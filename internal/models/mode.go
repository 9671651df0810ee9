package models

import "time"

// Mode identifies the active display mode. Exactly one is active at any time.
type Mode string

const (
	ModeRealTime Mode = "realtime"
	ModeToday    Mode = "today"
	ModeDay      Mode = "day"
	ModeRange    Mode = "range"
)

// Valid reports whether m is one of the four display modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeRealTime, ModeToday, ModeDay, ModeRange:
		return true
	}
	return false
}

// Historical reports whether the mode renders a discrete historical dataset
// rather than the live stream.
func (m Mode) Historical() bool {
	return m != ModeRealTime && m.Valid()
}

// Layout of the page, a deterministic function of the mode.
type Layout string

const (
	LayoutSingleColumn Layout = "single" // realtime: distribution panel hidden
	LayoutTwoColumn    Layout = "dual"   // historical: distribution panel shown
)

// LayoutFor maps a mode to its page layout.
func LayoutFor(m Mode) Layout {
	if m == ModeRealTime {
		return LayoutSingleColumn
	}
	return LayoutTwoColumn
}

// ModeState carries the active mode and its mode-specific parameters.
type ModeState struct {
	Mode Mode `json:"mode"`

	// RealTime
	TickInterval time.Duration `json:"tick_interval,omitempty"`

	// Today: time-of-day window ("HH:MM")
	FromTime string `json:"from_time,omitempty"`
	ToTime   string `json:"to_time,omitempty"`

	// Day / Range: calendar dates
	Day       time.Time `json:"day,omitempty"`
	RangeFrom time.Time `json:"range_from,omitempty"`
	RangeTo   time.Time `json:"range_to,omitempty"`
}
