// Package audit records verification activity for forensic review. A check
// that flags a document is only useful later if there is a trail of what was
// checked, against which template, with what outcome.
//
// Publishing is fail-open: an unreachable audit sink must never turn a
// completed verification into an error. Callers log emit failures and move
// on.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event kinds.
const (
	KindTemplateCheck = "template_check"
	KindBatchCluster  = "batch_cluster"
)

// Event is one audit record.
type Event struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id,omitempty"`
	Filename   string    `json:"filename,omitempty"`
	Issuer     string    `json:"issuer,omitempty"`
	TemplateID string    `json:"template_id,omitempty"`
	Variant    string    `json:"variant,omitempty"`
	Outcome    string    `json:"outcome,omitempty"` // pass | fail
	DocCount   int       `json:"doc_count,omitempty"`
}

// Publisher emits audit events.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}

// Stamp fills the generated fields of an event.
func Stamp(event Event) Event {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	return event
}

// Nop discards events. Used when no audit sink is configured.
type Nop struct{}

func (Nop) Emit(context.Context, Event) error { return nil }
