// Package pacing bounds how fast browser-facing actions may run. The timing
// setting selects a fixed-window budget; exceeding it is a terminal deny,
// never a silent wait. Control-plane actions (mode, config, audit) are not
// paced.
package pacing

import (
	"fmt"
	"sync"
	"time"

	"github.com/okume/actguard/internal/model"
	"github.com/okume/actguard/internal/settings"
)

// Budget is the per-window action allowance for one timing strategy.
// MaxActions <= 0 means unlimited.
type Budget struct {
	MaxActions int
	Window     time.Duration
}

// Budgets maps timing strategies to their budgets.
type Budgets map[string]Budget

// DefaultBudgets mirror what a polite browser session looks like. The
// unrestricted strategy carries no budget; the risk table charges it instead.
func DefaultBudgets() Budgets {
	return Budgets{
		settings.TimingRespectful: {MaxActions: 30, Window: time.Minute},
		settings.TimingAggressive: {MaxActions: 120, Window: time.Minute},
	}
}

// Result is the outcome of one pacing check.
type Result struct {
	Exceeded bool
	Current  int
	Limit    int
	Reason   string
}

// Pacer counts effectful actions per fixed window.
type Pacer struct {
	mu          sync.Mutex
	budgets     Budgets
	counts      map[model.ActionType]int
	windowStart time.Time
	now         func() time.Time
}

// New creates a pacer with the given budgets. Nil budgets use the defaults.
func New(budgets Budgets) *Pacer {
	if budgets == nil {
		budgets = DefaultBudgets()
	}
	return &Pacer{
		budgets: budgets,
		counts:  make(map[model.ActionType]int),
		now:     time.Now,
	}
}

// Check consumes one slot for the action under the given timing strategy.
// A strategy without a budget always passes.
func (p *Pacer) Check(t model.ActionType, timing string) Result {
	budget, ok := p.budgets[timing]
	if !ok || budget.MaxActions <= 0 || budget.Window <= 0 {
		return Result{}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if now.Sub(p.windowStart) >= budget.Window {
		p.counts = make(map[model.ActionType]int)
		p.windowStart = now
	}

	if p.counts[t] >= budget.MaxActions {
		return Result{
			Exceeded: true,
			Current:  p.counts[t],
			Limit:    budget.MaxActions,
			Reason: fmt.Sprintf("pacing budget exceeded for %s: %d/%d in %s window (timing: %s)",
				t, p.counts[t], budget.MaxActions, budget.Window, timing),
		}
	}

	p.counts[t]++
	return Result{Current: p.counts[t], Limit: budget.MaxActions}
}
