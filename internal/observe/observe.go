// Package observe turns raw page detections from the browser side into
// tagged action requests. The observer never performs anything itself: each
// detection is wrapped and handed to the dispatcher, which applies the gate
// like for any other request.
package observe

import (
	"context"
	"fmt"
	"time"

	"github.com/okume/actguard/internal/model"
)

// Kind classifies a page detection.
type Kind string

const (
	FormDetected      Kind = "form-detected"
	ChallengeDetected Kind = "challenge-detected"
	CaptchaDetected   Kind = "captcha-detected"
)

// Event is one detection reported by the browser side.
type Event struct {
	Kind       Kind           `json:"kind"`
	URL        string         `json:"url"`
	DetectedAt time.Time      `json:"detected_at"`
	Fields     map[string]any `json:"fields,omitempty"`
}

// WrapEvent maps a detection to the action request the dispatcher should
// gate. Unknown kinds are an error, not a silent drop.
func WrapEvent(ev Event) (model.Request, error) {
	var t model.ActionType
	switch ev.Kind {
	case FormDetected:
		t = model.ActionSubmitForm
	case ChallengeDetected:
		t = model.ActionHandleChallenge
	case CaptchaDetected:
		t = model.ActionSolveCaptcha
	default:
		return model.Request{}, fmt.Errorf("observe: unknown event kind %q", ev.Kind)
	}

	payload := map[string]any{"url": ev.URL}
	for k, v := range ev.Fields {
		payload[k] = v
	}
	return model.Request{Type: t, Payload: payload}, nil
}

// Sink consumes the dispatcher's response for one observed event.
// Implementations must not block for long; the pump is sequential.
type Sink func(Event, model.Response)

// Dispatcher is the subset of the dispatch surface the pump needs.
type Dispatcher interface {
	Dispatch(ctx context.Context, req model.Request) model.Response
}

// Pump drains a detection channel into the dispatcher, one event at a time.
// Ordering is preserved: detections are gated in arrival order.
type Pump struct {
	Events <-chan Event
	Target Dispatcher
	Sink   Sink
}

// Run consumes events until the channel closes or ctx is cancelled. Events
// that do not map to an action are reported to the sink as failures and
// skipped.
func (p *Pump) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-p.Events:
			if !ok {
				return nil
			}
			req, err := WrapEvent(ev)
			if err != nil {
				if p.Sink != nil {
					p.Sink(ev, model.Fail(err))
				}
				continue
			}
			resp := p.Target.Dispatch(ctx, req)
			if p.Sink != nil {
				p.Sink(ev, resp)
			}
		}
	}
}
