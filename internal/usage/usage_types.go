package usage

import "time"

// Mode is the spending posture derived from the monthly ratio.
type Mode string

const (
	ModeHigh   Mode = "high"
	ModeMedium Mode = "medium"
	ModeLow    Mode = "low"
)

// Provider result limits per mode.
const (
	HighResults   = 6
	MediumResults = 4
	LowResults    = 2
)

// UsageData is the root structure stored in usage.json.
type UsageData struct {
	Version     string                     `json:"version"`
	Month       string                     `json:"month"` // 2006-01
	Spent       float64                    `json:"spent"`
	ByOperation map[string]OperationTotals `json:"by_operation"`
	LastEvent   *UsageEvent                `json:"last_event,omitempty"`
}

// UsageEvent is a single metered operation.
type UsageEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Operation string    `json:"operation"`
	Cost      float64   `json:"cost"`
}

// OperationTotals holds per-operation sums for the current month.
type OperationTotals struct {
	Count int64   `json:"count"`
	Cost  float64 `json:"cost"`
}

func (ot *OperationTotals) Add(cost float64) {
	ot.Count++
	ot.Cost += cost
}
