// Package gate decides, for one requested action, whether it may proceed
// automatically, must wait for interactive confirmation, or is forbidden.
// The gate mutates nothing; audit recording lives with the dispatcher so
// every evaluation yields exactly one event.
package gate

import (
	"context"
	"errors"
	"fmt"

	"github.com/okume/actguard/internal/confirm"
	"github.com/okume/actguard/internal/model"
	"github.com/okume/actguard/internal/registry"
	"github.com/okume/actguard/internal/settings"
)

// Result is one gate evaluation outcome. Err is set for deny and cancel.
type Result struct {
	Decision model.Decision
	Level    model.AutomationLevel
	Reason   string
	Err      error
}

// Gate composes the capability registry with the confirmation surface.
type Gate struct {
	Registry  *registry.Config
	Confirmer confirm.Confirmer
}

// Evaluate runs the four-branch decision for an action:
//
//  1. mode below the minimum for the effective automation level -> deny;
//  2. manual -> defer, the system never performs the effect itself;
//  3. assisted -> block on confirmation; decline or cancellation -> cancel;
//  4. automated -> allow without confirmation.
//
// levelOverride, when valid, wins over the registry default. The min-mode
// check always uses the registry table, so an override can never lower the
// privilege required.
func (g *Gate) Evaluate(ctx context.Context, t model.ActionType, levelOverride string, mode model.Mode, snap settings.Snapshot) Result {
	level := g.Registry.EffectiveLevel(t, levelOverride)
	required := g.Registry.MinModeFor(t, level)

	if !mode.AtLeast(required) {
		err := &model.InsufficientPrivilegeError{
			Action:   t,
			Level:    level,
			Mode:     mode,
			Required: required,
		}
		return Result{
			Decision: model.Deny,
			Level:    level,
			Reason:   err.Error(),
			Err:      err,
		}
	}

	switch level {
	case model.LevelManual:
		return Result{
			Decision: model.Defer,
			Level:    level,
			Reason:   fmt.Sprintf("%s is configured manual: notify only, no effect performed", t),
		}

	case model.LevelAssisted:
		// Disabling confirmation skips the prompt entirely. The risk
		// table charges that permissiveness, not the gate.
		if !snap.Confirmation {
			return Result{
				Decision: model.Allow,
				Level:    level,
				Reason:   fmt.Sprintf("%s assisted, confirmation prompts disabled", t),
			}
		}
		return g.confirmThen(ctx, t, level)

	default: // model.LevelAutomated
		return Result{
			Decision: model.Allow,
			Level:    level,
			Reason:   fmt.Sprintf("%s automated in mode %s", t, mode),
		}
	}
}

// confirmThen blocks on the interactive confirmation step. This is the only
// suspension point in the control plane; cancellation abandons the action.
func (g *Gate) confirmThen(ctx context.Context, t model.ActionType, level model.AutomationLevel) Result {
	if g.Confirmer == nil {
		err := &model.UserDeclinedError{Action: t, Reason: "no confirmation surface available"}
		return Result{Decision: model.Cancel, Level: level, Reason: err.Error(), Err: err}
	}

	choice, err := g.Confirmer.Present(ctx, confirm.Prompt{
		Action:  string(t),
		Message: fmt.Sprintf("assisted %s requires confirmation", t),
	})
	if err != nil {
		reason := "confirmation cancelled"
		if errors.Is(err, context.DeadlineExceeded) {
			reason = "confirmation timed out"
		}
		declined := &model.UserDeclinedError{Action: t, Reason: reason}
		return Result{Decision: model.Cancel, Level: level, Reason: declined.Error(), Err: declined}
	}
	if choice != confirm.Confirmed {
		declined := &model.UserDeclinedError{Action: t}
		return Result{Decision: model.Cancel, Level: level, Reason: declined.Error(), Err: declined}
	}

	return Result{
		Decision: model.Allow,
		Level:    level,
		Reason:   fmt.Sprintf("%s confirmed interactively", t),
	}
}
