// Package confirm is the interactive-confirmation surface consumed by the
// gate's assisted branch. The core only sees the Confirmer interface;
// terminal, auto, and approval-store implementations live here.
package confirm

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// Choice is the user's answer to a confirmation prompt.
type Choice string

const (
	Confirmed Choice = "confirmed"
	Declined  Choice = "declined"
)

// Prompt describes one confirmation request.
type Prompt struct {
	Action  string
	Message string
}

// Confirmer presents a prompt and blocks for the user's choice. A ctx
// cancellation or deadline means the pending action is abandoned, never
// retried automatically.
type Confirmer interface {
	Present(ctx context.Context, p Prompt) (Choice, error)
}

// Auto is a fixed-answer confirmer for tests and non-interactive runs.
type Auto Choice

// Present returns the configured answer without prompting.
func (a Auto) Present(ctx context.Context, p Prompt) (Choice, error) {
	if err := ctx.Err(); err != nil {
		return Declined, err
	}
	return Choice(a), nil
}

// Terminal prompts on the given reader/writer pair (normally stdin/stderr).
type Terminal struct {
	In  io.Reader
	Out io.Writer
}

// Present writes the prompt and reads a y/n answer, honoring ctx
// cancellation while the read blocks.
func (t *Terminal) Present(ctx context.Context, p Prompt) (Choice, error) {
	fmt.Fprintf(t.Out, "%s\n  %s\nProceed? [y/N]: ", p.Action, p.Message)

	type answer struct {
		text string
		err  error
	}
	ch := make(chan answer, 1)
	go func() {
		line, err := bufio.NewReader(t.In).ReadString('\n')
		ch <- answer{text: line, err: err}
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(t.Out)
		return Declined, ctx.Err()
	case a := <-ch:
		if a.err != nil && a.text == "" {
			return Declined, nil
		}
		switch strings.ToLower(strings.TrimSpace(a.text)) {
		case "y", "yes":
			return Confirmed, nil
		default:
			return Declined, nil
		}
	}
}
