package gate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okume/actguard/internal/confirm"
	"github.com/okume/actguard/internal/model"
	"github.com/okume/actguard/internal/registry"
	"github.com/okume/actguard/internal/settings"
)

func newGate(c confirm.Confirmer) *Gate {
	return &Gate{Registry: registry.DefaultConfig(), Confirmer: c}
}

func TestAutomatedCaptchaDeniedBelowResearch(t *testing.T) {
	g := newGate(confirm.Auto(confirm.Confirmed))
	snap := settings.Defaults()

	for _, mode := range []model.Mode{model.ModeStandard, model.ModeAdvanced} {
		res := g.Evaluate(context.Background(), model.ActionSolveCaptcha, "automated", mode, snap)
		if res.Decision != model.Deny {
			t.Fatalf("mode %s: expected deny, got %s", mode, res.Decision)
		}
		var insuff *model.InsufficientPrivilegeError
		if !errors.As(res.Err, &insuff) {
			t.Fatalf("mode %s: expected InsufficientPrivilegeError, got %v", mode, res.Err)
		}
		if insuff.Required != model.ModeResearch {
			t.Fatalf("expected research requirement, got %s", insuff.Required)
		}
	}
}

func TestAutomatedCaptchaAllowedInResearch(t *testing.T) {
	g := newGate(confirm.Auto(confirm.Declined)) // must not be consulted

	res := g.Evaluate(context.Background(), model.ActionSolveCaptcha, "automated", model.ModeResearch, settings.Defaults())
	if res.Decision != model.Allow {
		t.Fatalf("expected allow, got %s (%s)", res.Decision, res.Reason)
	}
	if res.Level != model.LevelAutomated {
		t.Fatalf("expected automated level, got %s", res.Level)
	}
}

func TestManualDefersWithoutEffect(t *testing.T) {
	g := newGate(confirm.Auto(confirm.Confirmed))

	res := g.Evaluate(context.Background(), model.ActionSolveCaptcha, "", model.ModeStandard, settings.Defaults())
	if res.Decision != model.Defer {
		t.Fatalf("expected defer for manual default level, got %s", res.Decision)
	}
	if res.Err != nil {
		t.Fatalf("defer is not an error: %v", res.Err)
	}
}

func TestAssistedConfirmAllows(t *testing.T) {
	g := newGate(confirm.Auto(confirm.Confirmed))

	res := g.Evaluate(context.Background(), model.ActionSubmitForm, "", model.ModeStandard, settings.Defaults())
	if res.Decision != model.Allow {
		t.Fatalf("expected allow after confirmation, got %s (%s)", res.Decision, res.Reason)
	}
}

func TestAssistedDeclineCancels(t *testing.T) {
	g := newGate(confirm.Auto(confirm.Declined))

	res := g.Evaluate(context.Background(), model.ActionSubmitForm, "", model.ModeStandard, settings.Defaults())
	if res.Decision != model.Cancel {
		t.Fatalf("expected cancel on decline, got %s", res.Decision)
	}
	var declined *model.UserDeclinedError
	if !errors.As(res.Err, &declined) {
		t.Fatalf("expected UserDeclinedError, got %v", res.Err)
	}
}

func TestAssistedTimeoutCancels(t *testing.T) {
	g := newGate(blockingConfirmer{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	res := g.Evaluate(ctx, model.ActionSubmitForm, "", model.ModeStandard, settings.Defaults())
	if res.Decision != model.Cancel {
		t.Fatalf("expected cancel on timeout, got %s", res.Decision)
	}
	var declined *model.UserDeclinedError
	if !errors.As(res.Err, &declined) {
		t.Fatalf("expected UserDeclinedError, got %v", res.Err)
	}
}

func TestAssistedSkipsPromptWhenConfirmationDisabled(t *testing.T) {
	g := newGate(panicConfirmer{t})

	snap := settings.Defaults()
	snap.Confirmation = false

	res := g.Evaluate(context.Background(), model.ActionSubmitForm, "", model.ModeStandard, snap)
	if res.Decision != model.Allow {
		t.Fatalf("expected allow with confirmation disabled, got %s", res.Decision)
	}
}

func TestOverrideCannotLowerRequiredMode(t *testing.T) {
	g := newGate(confirm.Auto(confirm.Confirmed))

	// Assisted challenge handling needs advanced; an override to assisted
	// in standard mode must deny, not fall back to the manual default.
	res := g.Evaluate(context.Background(), model.ActionHandleChallenge, "assisted", model.ModeStandard, settings.Defaults())
	if res.Decision != model.Deny {
		t.Fatalf("expected deny, got %s", res.Decision)
	}
}

// blockingConfirmer never answers; only ctx cancellation releases it.
type blockingConfirmer struct{}

func (blockingConfirmer) Present(ctx context.Context, p confirm.Prompt) (confirm.Choice, error) {
	<-ctx.Done()
	return confirm.Declined, ctx.Err()
}

// panicConfirmer fails the test if the gate consults it.
type panicConfirmer struct{ t *testing.T }

func (p panicConfirmer) Present(ctx context.Context, _ confirm.Prompt) (confirm.Choice, error) {
	p.t.Fatal("confirmer consulted when prompts are disabled")
	return confirm.Declined, nil
}
