// Package usage meters paid operations against a monthly ceiling and
// derives a spending mode that other components use to scale down work.
package usage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"jarvis/internal/logging"
)

const monthLayout = "2006-01"

type contextKey struct{}

// BudgetGuard tracks monthly spend. It is safe for concurrent use.
type BudgetGuard struct {
	mu       sync.Mutex
	data     UsageData
	filePath string
	limit    float64
	now      func() time.Time
}

// NewBudgetGuard creates a guard persisted under dataDir/usage.json. An
// empty dataDir keeps totals in memory only.
func NewBudgetGuard(dataDir string, monthlyLimit float64) (*BudgetGuard, error) {
	g := &BudgetGuard{limit: monthlyLimit, now: time.Now}
	if dataDir != "" {
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data dir: %w", err)
		}
		g.filePath = filepath.Join(dataDir, "usage.json")
	}
	g.data = g.emptyData()

	if err := g.load(); err != nil {
		// A corrupt file starts a fresh month rather than blocking startup.
		logging.Get(logging.CategoryBudget).Warn("ignoring unreadable usage file %s: %v", g.filePath, err)
		g.data = g.emptyData()
	}
	return g, nil
}

// SetClock replaces time.Now, for tests.
func (g *BudgetGuard) SetClock(now func() time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.now = now
}

func (g *BudgetGuard) emptyData() UsageData {
	return UsageData{
		Version:     "1.0",
		Month:       g.now().Format(monthLayout),
		ByOperation: make(map[string]OperationTotals),
	}
}

func (g *BudgetGuard) load() error {
	if g.filePath == "" {
		return nil
	}
	data, err := os.ReadFile(g.filePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	var d UsageData
	if err := json.Unmarshal(data, &d); err != nil {
		return err
	}
	if d.ByOperation == nil {
		d.ByOperation = make(map[string]OperationTotals)
	}
	g.data = d
	return nil
}

func (g *BudgetGuard) saveLocked() error {
	if g.filePath == "" {
		return nil
	}
	data, err := json.MarshalIndent(g.data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(g.filePath, data, 0644)
}

// rollLocked starts a new month when the calendar month changed.
func (g *BudgetGuard) rollLocked() {
	month := g.now().Format(monthLayout)
	if g.data.Month == month {
		return
	}
	logging.Budget("New budget month %s (previous %s spent %.2f)", month, g.data.Month, g.data.Spent)
	g.data = g.emptyData()
}

// AddUsage records cost for operation and persists the new totals.
func (g *BudgetGuard) AddUsage(operation string, cost float64) error {
	if cost < 0 {
		return fmt.Errorf("negative cost %v", cost)
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	g.rollLocked()
	g.data.Spent += cost
	totals := g.data.ByOperation[operation]
	totals.Add(cost)
	g.data.ByOperation[operation] = totals
	g.data.LastEvent = &UsageEvent{Timestamp: g.now(), Operation: operation, Cost: cost}

	logging.Budget("Usage %s +%.4f (month total %.4f / %.2f)", operation, cost, g.data.Spent, g.limit)
	return g.saveLocked()
}

// Spent returns the current month's total.
func (g *BudgetGuard) Spent() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rollLocked()
	return g.data.Spent
}

// Limit returns the monthly ceiling.
func (g *BudgetGuard) Limit() float64 {
	return g.limit
}

// Ratio is spent/limit. A non-positive limit counts as exhausted.
func (g *BudgetGuard) Ratio() float64 {
	if g.limit <= 0 {
		return 1
	}
	return g.Spent() / g.limit
}

// Mode maps the ratio to a spending mode.
func (g *BudgetGuard) Mode() Mode {
	r := g.Ratio()
	switch {
	case r >= 0.9:
		return ModeLow
	case r >= 0.5:
		return ModeMedium
	default:
		return ModeHigh
	}
}

// MaxResults is the per-provider result limit for the current mode.
func (g *BudgetGuard) MaxResults() int {
	switch g.Mode() {
	case ModeLow:
		return LowResults
	case ModeMedium:
		return MediumResults
	default:
		return HighResults
	}
}

// Stats returns a copy of the current month's data.
func (g *BudgetGuard) Stats() UsageData {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rollLocked()
	d := g.data
	d.ByOperation = make(map[string]OperationTotals, len(g.data.ByOperation))
	for k, v := range g.data.ByOperation {
		d.ByOperation[k] = v
	}
	if g.data.LastEvent != nil {
		ev := *g.data.LastEvent
		d.LastEvent = &ev
	}
	return d
}

// NewContext returns a context carrying the guard.
func NewContext(ctx context.Context, g *BudgetGuard) context.Context {
	return context.WithValue(ctx, contextKey{}, g)
}

// FromContext retrieves the guard from ctx, or nil.
func FromContext(ctx context.Context) *BudgetGuard {
	g, _ := ctx.Value(contextKey{}).(*BudgetGuard)
	return g
}
