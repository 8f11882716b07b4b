package webhook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maheshrc27/ghst/internal/metrics"
	"github.com/maheshrc27/ghst/internal/models"
)

type Outcome string

const (
	OutcomeOK      Outcome = "ok"
	OutcomeSkipped Outcome = "skipped"
	OutcomeError   Outcome = "error"
)

type EntryResult struct {
	Event   string
	Ref     string
	Outcome Outcome
	Reason  string
	Err     error
}

// Result accumulates the outcome of every entry in one delivery. Processing
// never stops on a failed entry.
type Result struct {
	Platform models.Platform
	Entries  []EntryResult
}

func newResult(p models.Platform) *Result {
	return &Result{Platform: p}
}

func (r *Result) ok(event, ref string) {
	r.Entries = append(r.Entries, EntryResult{Event: event, Ref: ref, Outcome: OutcomeOK})
}

func (r *Result) skip(event, ref, reason string) {
	r.Entries = append(r.Entries, EntryResult{Event: event, Ref: ref, Outcome: OutcomeSkipped, Reason: reason})
}

func (r *Result) fail(event, ref string, err error) {
	r.Entries = append(r.Entries, EntryResult{Event: event, Ref: ref, Outcome: OutcomeError, Err: err})
}

// run executes one entry handler, turning a panic into an error entry.
func (r *Result) run(event, ref string, fn func() (skipReason string, err error)) {
	defer func() {
		if p := recover(); p != nil {
			r.fail(event, ref, fmt.Errorf("panic: %v", p))
		}
	}()
	reason, err := fn()
	switch {
	case err != nil:
		r.fail(event, ref, err)
	case reason != "":
		r.skip(event, ref, reason)
	default:
		r.ok(event, ref)
	}
}

func (r *Result) Count(o Outcome) int {
	n := 0
	for _, e := range r.Entries {
		if e.Outcome == o {
			n++
		}
	}
	return n
}

// Log writes one structured record per entry and updates the entry metrics.
func (r *Result) Log(ctx context.Context, requestID string) {
	for _, e := range r.Entries {
		metrics.WebhookEntries.WithLabelValues(string(r.Platform), string(e.Outcome)).Inc()

		attrs := []any{
			"platform", r.Platform,
			"event", e.Event,
			"status", e.Outcome,
			"ref", e.Ref,
			"request_id", requestID,
		}
		switch e.Outcome {
		case OutcomeError:
			slog.ErrorContext(ctx, "webhook entry failed", append(attrs, "error", e.Err.Error())...)
		case OutcomeSkipped:
			slog.DebugContext(ctx, "webhook entry skipped", append(attrs, "reason", e.Reason)...)
		default:
			slog.DebugContext(ctx, "webhook entry stored", attrs...)
		}
	}
	slog.InfoContext(ctx, "webhook processed",
		"platform", r.Platform,
		"request_id", requestID,
		"ok", r.Count(OutcomeOK),
		"skipped", r.Count(OutcomeSkipped),
		"errors", r.Count(OutcomeError),
	)
}
