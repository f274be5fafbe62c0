package confirm

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/okume/actguard/internal/approval"
)

func TestAutoConfirmer(t *testing.T) {
	ctx := context.Background()
	p := Prompt{Action: "submit-form", Message: "checkout"}

	choice, err := Auto(Confirmed).Present(ctx, p)
	if err != nil || choice != Confirmed {
		t.Fatalf("expected confirmed, got %s (%v)", choice, err)
	}

	choice, err = Auto(Declined).Present(ctx, p)
	if err != nil || choice != Declined {
		t.Fatalf("expected declined, got %s (%v)", choice, err)
	}
}

func TestAutoConfirmerHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	choice, err := Auto(Confirmed).Present(ctx, Prompt{Action: "solve-captcha"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if choice != Declined {
		t.Fatalf("cancelled prompt must decline, got %s", choice)
	}
}

func TestTerminalYes(t *testing.T) {
	var out bytes.Buffer
	term := &Terminal{In: strings.NewReader("y\n"), Out: &out}

	choice, err := term.Present(context.Background(), Prompt{Action: "submit-form", Message: "login form"})
	if err != nil {
		t.Fatalf("present: %v", err)
	}
	if choice != Confirmed {
		t.Fatalf("expected confirmed, got %s", choice)
	}
	if !strings.Contains(out.String(), "login form") {
		t.Fatalf("prompt missing message: %q", out.String())
	}
}

func TestTerminalDefaultsToDecline(t *testing.T) {
	for _, input := range []string{"n\n", "\n", "whatever\n", ""} {
		var out bytes.Buffer
		term := &Terminal{In: strings.NewReader(input), Out: &out}

		choice, err := term.Present(context.Background(), Prompt{Action: "sync-session"})
		if err != nil {
			t.Fatalf("input %q: %v", input, err)
		}
		if choice != Declined {
			t.Fatalf("input %q: expected declined, got %s", input, choice)
		}
	}
}

func TestStoreConfirmerApproved(t *testing.T) {
	st, err := approval.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	sc := &StoreConfirmer{Store: st}

	done := make(chan struct{})
	var choice Choice
	var presentErr error
	go func() {
		defer close(done)
		choice, presentErr = sc.Present(context.Background(), Prompt{Action: "sync-session", Message: "x"})
	}()

	// Resolve the pending key once it appears.
	deadline := time.After(2 * time.Second)
	for {
		pending, err := st.List()
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(pending) == 1 {
			if err := st.Approve(pending[0].Key); err != nil {
				t.Fatalf("approve: %v", err)
			}
			break
		}
		select {
		case <-deadline:
			t.Fatal("pending request never appeared")
		case <-time.After(10 * time.Millisecond):
		}
	}

	<-done
	if presentErr != nil {
		t.Fatalf("present: %v", presentErr)
	}
	if choice != Confirmed {
		t.Fatalf("expected confirmed, got %s", choice)
	}
}

func TestStoreConfirmerContextTimeout(t *testing.T) {
	st, err := approval.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	sc := &StoreConfirmer{Store: st}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	choice, err := sc.Present(ctx, Prompt{Action: "submit-form"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if choice != Declined {
		t.Fatalf("expected declined on timeout, got %s", choice)
	}
}
