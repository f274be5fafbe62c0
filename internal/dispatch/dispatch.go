// Package dispatch routes tagged action requests through the gate and owns
// all mutable control-plane state. Every mutating operation serializes
// through one dispatcher; no request ever observes a partial read of the
// configuration interleaved with a write of mode or log.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/okume/actguard/internal/audit"
	"github.com/okume/actguard/internal/confirm"
	"github.com/okume/actguard/internal/gate"
	"github.com/okume/actguard/internal/model"
	"github.com/okume/actguard/internal/modestate"
	"github.com/okume/actguard/internal/pacing"
	"github.com/okume/actguard/internal/registry"
	"github.com/okume/actguard/internal/risk"
	"github.com/okume/actguard/internal/session"
	"github.com/okume/actguard/internal/settings"
	"github.com/okume/actguard/internal/store"
	"github.com/okume/actguard/internal/vault"
)

// Solver is the external CAPTCHA-solving collaborator. Calls are bounded by
// the caller's ctx.
type Solver interface {
	Solve(ctx context.Context, payload map[string]any) (map[string]any, error)
}

// FormFiller submits a detected form.
type FormFiller interface {
	Submit(ctx context.Context, payload map[string]any) (map[string]any, error)
}

// ChallengeResponder handles an anti-bot challenge.
type ChallengeResponder interface {
	Respond(ctx context.Context, payload map[string]any) (map[string]any, error)
}

// Config wires a dispatcher. Store and AuditLog are required; collaborators
// may be nil, in which case the corresponding effect reports an error after
// the gate allows it.
type Config struct {
	Store      *store.Store
	AuditLog   *audit.Log
	Registry   *registry.Config
	Weights    *risk.Weights
	Confirmer  confirm.Confirmer
	Vault      *vault.Vault
	Owners     session.OwnershipVerifier
	Syncer     session.Syncer
	Solver     Solver
	FormFiller FormFiller
	Challenger ChallengeResponder
	// Budgets overrides the pacing budgets; nil uses the defaults.
	Budgets pacing.Budgets
}

// Dispatcher is the single logical owner of the configuration snapshot, the
// mode machine, and the audit log.
type Dispatcher struct {
	mu sync.Mutex

	snap    settings.Snapshot
	machine *modestate.Machine
	gate    *gate.Gate
	weights *risk.Weights
	log     *audit.Log
	kv      *store.Store
	pacer   *pacing.Pacer

	vault      *vault.Vault
	owners     session.OwnershipVerifier
	syncer     session.Syncer
	solver     Solver
	formFiller FormFiller
	challenger ChallengeResponder

	termsAccepted bool
}

// New loads persisted state wholesale over built-in defaults and returns a
// ready dispatcher. Unknown persisted keys are ignored; missing keys keep
// their defaults.
func New(cfg Config) (*Dispatcher, error) {
	if cfg.Store == nil || cfg.AuditLog == nil {
		return nil, fmt.Errorf("dispatch: store and audit log are required")
	}
	if cfg.Registry == nil {
		cfg.Registry = registry.DefaultConfig()
	}
	if cfg.Weights == nil {
		cfg.Weights = risk.DefaultWeights()
	}

	snap := settings.Defaults()
	if raw, ok, err := cfg.Store.Get(store.KeySettings); err != nil {
		return nil, fmt.Errorf("dispatch: load settings: %w", err)
	} else if ok {
		var m map[string]string
		if err := json.Unmarshal(raw, &m); err == nil {
			snap = settings.FromMap(m)
		}
	}

	machine, err := modestate.Load(cfg.Store)
	if err != nil {
		return nil, err
	}

	termsAccepted := false
	if raw, ok, err := cfg.Store.Get(store.KeyTermsAccepted); err != nil {
		return nil, fmt.Errorf("dispatch: load terms flag: %w", err)
	} else if ok {
		termsAccepted = string(raw) == "true"
	}

	cfg.AuditLog.SetEnabled(snap.Logging)

	return &Dispatcher{
		snap:          snap,
		machine:       machine,
		gate:          &gate.Gate{Registry: cfg.Registry, Confirmer: cfg.Confirmer},
		weights:       cfg.Weights,
		log:           cfg.AuditLog,
		kv:            cfg.Store,
		pacer:         pacing.New(cfg.Budgets),
		vault:         cfg.Vault,
		owners:        cfg.Owners,
		syncer:        cfg.Syncer,
		solver:        cfg.Solver,
		formFiller:    cfg.FormFiller,
		challenger:    cfg.Challenger,
		termsAccepted: termsAccepted,
	}, nil
}

// Settings returns a copy of the live configuration snapshot.
func (d *Dispatcher) Settings() settings.Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snap
}

// Mode returns the current privilege mode.
func (d *Dispatcher) Mode() model.Mode {
	return d.machine.Current()
}

// Risk recomputes the risk report from the live snapshot. Never cached: the
// displayed risk cannot drift from the actual configuration.
func (d *Dispatcher) Risk() risk.Report {
	d.mu.Lock()
	defer d.mu.Unlock()
	return risk.Evaluate(d.snap, d.weights)
}

// TermsAccepted reports the persisted terms flag.
func (d *Dispatcher) TermsAccepted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.termsAccepted
}

// Reconfigure swaps the registry and weight tables (hot reload). Nil leaves
// the current table in place.
func (d *Dispatcher) Reconfigure(reg *registry.Config, w *risk.Weights) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if reg != nil {
		d.gate.Registry = reg
	}
	if w != nil {
		d.weights = w
	}
}

// CheckResult is the dry-run gate prediction exposed to the CLI and MCP.
type CheckResult struct {
	Action       model.ActionType      `json:"action"`
	Level        model.AutomationLevel `json:"level"`
	RequiredMode model.Mode            `json:"required_mode"`
	CurrentMode  model.Mode            `json:"current_mode"`
	Decision     model.Decision        `json:"decision"`
	Reason       string                `json:"reason"`
}

// Check predicts the gate outcome without prompting, performing any effect,
// or writing audit events.
func (d *Dispatcher) Check(t model.ActionType, levelOverride string) CheckResult {
	d.mu.Lock()
	defer d.mu.Unlock()

	reg := d.gate.Registry
	level := reg.EffectiveLevel(t, levelOverride)
	required := reg.MinModeFor(t, level)
	mode := d.machine.Current()

	res := CheckResult{
		Action:       t,
		Level:        level,
		RequiredMode: required,
		CurrentMode:  mode,
	}

	switch {
	case !mode.AtLeast(required):
		res.Decision = model.Deny
		res.Reason = fmt.Sprintf("mode %s below required %s", mode, required)
	case level == model.LevelManual:
		res.Decision = model.Defer
		res.Reason = "manual: notify only"
	case level == model.LevelAssisted && d.snap.Confirmation:
		res.Decision = model.Allow
		res.Reason = "would prompt for confirmation"
	default:
		res.Decision = model.Allow
		res.Reason = "would proceed without confirmation"
	}
	return res
}

// outcome is what each handler returns; the dispatcher turns it into exactly
// one audit event and one response.
type outcome struct {
	decision model.Decision
	details  audit.Details
	data     map[string]any
	err      error
}

// Dispatch routes one tagged request. Every request yields exactly one
// terminal outcome — performed, deferred, denied, cancelled, or errored —
// and exactly one audit event before the response returns.
func (d *Dispatcher) Dispatch(ctx context.Context, req model.Request) model.Response {
	d.mu.Lock()
	defer d.mu.Unlock()

	t, ok := model.ParseActionType(string(req.Type))
	if !ok {
		err := fmt.Errorf("unknown action type %q", req.Type)
		d.record("unknown", model.Deny, audit.Details{Reason: err.Error(), Kind: "internal"})
		return model.Fail(err)
	}

	var out outcome
	switch t {
	case model.ActionHandleChallenge:
		out = d.handleChallenge(ctx, req)
	case model.ActionSolveCaptcha:
		out = d.handleSolveCaptcha(ctx, req)
	case model.ActionSyncSession:
		out = d.handleSyncSession(ctx, req)
	case model.ActionSubmitForm:
		out = d.handleSubmitForm(ctx, req)
	case model.ActionStoreCredential:
		out = d.handleStoreCredential(ctx, req)
	case model.ActionRetrieveCredential:
		out = d.handleRetrieveCredential(ctx, req)
	case model.ActionExportAudit:
		out = d.handleExportAudit(ctx, req)
	case model.ActionChangeMode:
		out = d.handleChangeMode(ctx, req)
	case model.ActionUpdateConfig:
		out = d.handleUpdateConfig(ctx, req)
	case model.ActionAcceptTerms:
		out = d.handleAcceptTerms(ctx, req)
	}

	if out.err != nil {
		out.details.Kind = model.ErrorKind(out.err)
		if out.details.Reason == "" {
			out.details.Reason = out.err.Error()
		}
	}

	// Log enablement follows the snapshot around the single record: the
	// event that turns logging back on is recorded, and so is the event
	// that turns it off. Only events after the disabling one are dropped.
	if d.snap.Logging && !d.log.Enabled() {
		d.log.SetEnabled(true)
	}
	d.record(string(t), out.decision, out.details)
	d.log.SetEnabled(d.snap.Logging)

	if out.err != nil {
		return model.Fail(out.err)
	}
	resp := model.OK(out.data)
	if out.decision == model.Defer {
		resp.Data = mergeData(resp.Data, map[string]any{"deferred": true})
	}
	return resp
}

// record writes the single audit event for a dispatch. Mode and risk are
// read live at record time. A failed write is reported to stderr but does
// not change the request outcome (at-least-attempted logging).
func (d *Dispatcher) record(actionType string, decision model.Decision, details audit.Details) {
	event := audit.Event{
		Type:     actionType,
		Decision: string(decision),
		Details:  details,
		Mode:     string(d.machine.Current()),
	}
	report := risk.Evaluate(d.snap, d.weights)
	event.Risk = report.Score
	event.RiskLevel = string(report.Level)

	if err := d.log.Record(event); err != nil {
		fmt.Fprintf(os.Stderr, "actguard: audit write failed: %v\n", err)
	}
}

// persistSettings writes the snapshot after a mutation; the caller is only
// answered once the write returns.
func (d *Dispatcher) persistSettings() error {
	data, err := json.Marshal(d.snap.ToMap())
	if err != nil {
		return fmt.Errorf("dispatch: marshal settings: %w", err)
	}
	return d.kv.Set(store.KeySettings, data)
}

func mergeData(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any, len(src))
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
