package dispatch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/okume/actguard/internal/audit"
	"github.com/okume/actguard/internal/model"
	"github.com/okume/actguard/internal/risk"
	"github.com/okume/actguard/internal/session"
	"github.com/okume/actguard/internal/settings"
	"github.com/okume/actguard/internal/store"
)

// evaluateGate runs the gate for a request and converts deny/cancel/defer
// into terminal outcomes. The boolean reports whether the effect may run.
func (d *Dispatcher) evaluateGate(ctx context.Context, t model.ActionType, levelOverride string) (outcome, bool) {
	res := d.gate.Evaluate(ctx, t, levelOverride, d.machine.Current(), d.snap)
	out := outcome{
		decision: res.Decision,
		details:  audit.Details{Level: string(res.Level), Reason: res.Reason},
		err:      res.Err,
	}
	return out, res.Decision == model.Allow
}

// paced consumes one pacing slot for an effectful action. Exceeding the
// timing budget is a terminal deny.
func (d *Dispatcher) paced(t model.ActionType, out outcome) (outcome, bool) {
	res := d.pacer.Check(t, d.snap.Timing)
	if res.Exceeded {
		out.decision = model.Deny
		out.details.Reason = res.Reason
		out.err = fmt.Errorf("%s", res.Reason)
		return out, false
	}
	return out, true
}

// runEffect invokes an external collaborator after the gate allowed the
// action. A missing collaborator is an errored outcome, not a crash.
func runEffect(ctx context.Context, name string, out outcome, fn func(context.Context) (map[string]any, error)) outcome {
	if fn == nil {
		out.decision = model.Deny
		out.err = fmt.Errorf("no %s collaborator configured", name)
		return out
	}
	data, err := fn(ctx)
	if err != nil {
		out.err = fmt.Errorf("%s: %w", name, err)
		return out
	}
	out.data = mergeData(out.data, data)
	return out
}

func (d *Dispatcher) handleChallenge(ctx context.Context, req model.Request) outcome {
	// The challenge strategy setting picks the automation level unless the
	// request overrides it explicitly.
	override := req.PayloadString("level")
	if override == "" {
		switch d.snap.Challenge {
		case settings.ChallengeAssist:
			override = string(model.LevelAssisted)
		case settings.ChallengeBypass:
			override = string(model.LevelAutomated)
		default:
			override = string(model.LevelManual)
		}
	}

	out, allowed := d.evaluateGate(ctx, model.ActionHandleChallenge, override)
	if !allowed {
		return out
	}
	if out, ok := d.paced(model.ActionHandleChallenge, out); !ok {
		return out
	}

	var respond func(context.Context) (map[string]any, error)
	if d.challenger != nil {
		respond = func(ctx context.Context) (map[string]any, error) {
			return d.challenger.Respond(ctx, req.Payload)
		}
	}
	return runEffect(ctx, "challenge responder", out, respond)
}

func (d *Dispatcher) handleSolveCaptcha(ctx context.Context, req model.Request) outcome {
	// The captcha setting is the configured automation level; an explicit
	// payload override still cannot lower the required mode.
	override := req.PayloadString("level")
	if override == "" {
		override = d.snap.Captcha
	}

	out, allowed := d.evaluateGate(ctx, model.ActionSolveCaptcha, override)
	if !allowed {
		return out
	}
	if out, ok := d.paced(model.ActionSolveCaptcha, out); !ok {
		return out
	}

	var solve func(context.Context) (map[string]any, error)
	if d.solver != nil {
		solve = func(ctx context.Context) (map[string]any, error) {
			return d.solver.Solve(ctx, req.Payload)
		}
	}
	return runEffect(ctx, "captcha solver", out, solve)
}

func (d *Dispatcher) handleSyncSession(ctx context.Context, req model.Request) outcome {
	source := req.PayloadString("source")
	target := req.PayloadString("target")
	details := audit.Details{Resource: fmt.Sprintf("%s -> %s", source, target)}

	// Ownership verification is orthogonal to mode: it runs before the
	// gate whenever enabled, so mode elevation can never bypass it.
	rec := session.TransferRecord{Source: source, Target: target}
	if d.snap.SessionVerification {
		if d.owners == nil {
			return outcome{decision: model.Deny, details: details,
				err: fmt.Errorf("session verification enabled but no ownership verifier configured")}
		}
		verified, err := session.Verify(ctx, d.owners, source, target)
		if err != nil {
			return outcome{decision: model.Deny, details: details, err: err}
		}
		rec = verified
	}

	out, allowed := d.evaluateGate(ctx, model.ActionSyncSession, req.PayloadString("level"))
	out.details.Resource = details.Resource
	if !allowed {
		return out
	}
	if out, ok := d.paced(model.ActionSyncSession, out); !ok {
		return out
	}

	var sync func(context.Context) (map[string]any, error)
	if d.syncer != nil {
		sync = func(ctx context.Context) (map[string]any, error) {
			if err := d.syncer.Sync(ctx, rec); err != nil {
				return nil, err
			}
			return map[string]any{
				"source":             rec.Source,
				"target":             rec.Target,
				"ownership_verified": rec.OwnershipVerified,
			}, nil
		}
	}
	return runEffect(ctx, "session syncer", out, sync)
}

func (d *Dispatcher) handleSubmitForm(ctx context.Context, req model.Request) outcome {
	override := req.PayloadString("level")
	if override == "" && d.snap.FormAutoSubmit {
		override = string(model.LevelAutomated)
	}

	out, allowed := d.evaluateGate(ctx, model.ActionSubmitForm, override)
	out.details.Resource = req.PayloadString("form")
	if !allowed {
		return out
	}
	if out, ok := d.paced(model.ActionSubmitForm, out); !ok {
		return out
	}

	var submit func(context.Context) (map[string]any, error)
	if d.formFiller != nil {
		submit = func(ctx context.Context) (map[string]any, error) {
			return d.formFiller.Submit(ctx, req.Payload)
		}
	}
	return runEffect(ctx, "form filler", out, submit)
}

func (d *Dispatcher) handleStoreCredential(ctx context.Context, req model.Request) outcome {
	site := req.PayloadString("site")
	details := audit.Details{Resource: site}

	// Consent is a hard precondition, distinct from and checked before
	// mode/confirmation gating.
	if !req.PayloadBool("consent") {
		return outcome{decision: model.Deny, details: details,
			err: &model.MissingConsentError{Action: model.ActionStoreCredential}}
	}

	out, allowed := d.evaluateGate(ctx, model.ActionStoreCredential, req.PayloadString("level"))
	out.details.Resource = site
	if !allowed {
		return out
	}

	if d.vault == nil {
		out.err = fmt.Errorf("no credential vault configured")
		return out
	}
	rec, err := d.vault.Put(site, []byte(req.PayloadString("secret")))
	if err != nil {
		out.err = err
		return out
	}
	out.data = map[string]any{
		"site":      rec.SiteKey,
		"stored_at": rec.StoredAt,
		"method":    rec.Method,
	}
	return out
}

func (d *Dispatcher) handleRetrieveCredential(ctx context.Context, req model.Request) outcome {
	site := req.PayloadString("site")

	out, allowed := d.evaluateGate(ctx, model.ActionRetrieveCredential, req.PayloadString("level"))
	out.details.Resource = site
	if !allowed {
		return out
	}

	if d.vault == nil {
		out.err = fmt.Errorf("no credential vault configured")
		return out
	}
	secret, err := d.vault.Get(site)
	if err != nil {
		out.err = err
		return out
	}
	out.data = map[string]any{"site": site, "secret": string(secret)}
	return out
}

func (d *Dispatcher) handleExportAudit(ctx context.Context, req model.Request) outcome {
	out, allowed := d.evaluateGate(ctx, model.ActionExportAudit, req.PayloadString("level"))
	if !allowed {
		return out
	}

	export, err := d.log.Export()
	if err != nil {
		out.err = err
		return out
	}
	// Round-trip through JSON to keep the response payload a plain map.
	raw, err := json.Marshal(export)
	if err != nil {
		out.err = fmt.Errorf("dispatch: marshal export: %w", err)
		return out
	}
	var asMap map[string]any
	if err := json.Unmarshal(raw, &asMap); err != nil {
		out.err = fmt.Errorf("dispatch: decode export: %w", err)
		return out
	}
	out.data = asMap
	return out
}

func (d *Dispatcher) handleChangeMode(ctx context.Context, req model.Request) outcome {
	target := req.PayloadString("mode")
	justification := req.PayloadString("justification")

	out, allowed := d.evaluateGate(ctx, model.ActionChangeMode, req.PayloadString("level"))
	if !allowed {
		return out
	}

	to, err := model.ParseMode(target)
	if err != nil {
		out.decision = model.Deny
		out.err = err
		return out
	}

	from, err := d.machine.Transition(to, justification)
	if err != nil {
		out.decision = model.Deny
		out.err = err
		out.details = audit.Details{
			FromMode: string(from),
			ToMode:   string(to),
			Reason:   err.Error(),
		}
		return out
	}

	out.details = audit.Details{
		FromMode:      string(from),
		ToMode:        string(to),
		Justification: justification,
		Reason:        "mode transition",
	}
	out.data = map[string]any{"from": string(from), "to": string(to)}
	return out
}

func (d *Dispatcher) handleUpdateConfig(ctx context.Context, req model.Request) outcome {
	key := req.PayloadString("key")
	value := req.PayloadString("value")

	out, allowed := d.evaluateGate(ctx, model.ActionUpdateConfig, req.PayloadString("level"))
	out.details.Setting = key
	out.details.Value = value
	if !allowed {
		return out
	}

	if err := d.snap.Set(key, value); err != nil {
		out.decision = model.Deny
		out.err = err
		return out
	}

	if err := d.persistSettings(); err != nil {
		out.err = err
		return out
	}

	report := risk.Evaluate(d.snap, d.weights)
	out.data = map[string]any{
		"key":        key,
		"value":      value,
		"risk_score": report.Score,
		"risk_level": string(report.Level),
	}
	return out
}

func (d *Dispatcher) handleAcceptTerms(ctx context.Context, req model.Request) outcome {
	out, allowed := d.evaluateGate(ctx, model.ActionAcceptTerms, req.PayloadString("level"))
	if !allowed {
		return out
	}

	d.termsAccepted = true
	if err := d.kv.Set(store.KeyTermsAccepted, []byte("true")); err != nil {
		out.err = err
		return out
	}
	out.data = map[string]any{"accepted": true}
	return out
}
