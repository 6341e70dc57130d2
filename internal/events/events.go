// Package events carries lifecycle events from the core services to the
// background workers. Emission is fire-and-forget: the core never blocks on
// delivery and delivery failures never roll back the state change that
// produced the event (asynq owns the retries).
package events

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/hibiken/asynq"
)

// Event kinds emitted by the core.
const (
	KindListingCreated      = "listing.created"
	KindListingTransitioned = "listing.transitioned"
	KindListingExpired      = "listing.expired"
	KindListingViewed       = "listing.viewed"
	KindInquiryCreated      = "inquiry.created"
	KindInquiryReplied      = "inquiry.replied"
	KindRoleChanged         = "user.role_changed"
	KindVerificationDecided = "verification.decided"
)

// Asynq task types the emitter enqueues; the task processor registers
// handlers for these.
const (
	TaskTypeNotify    = "event:notify"
	TaskTypeAnalytics = "event:analytics"
)

// Payload is the wire form of an emitted event.
type Payload struct {
	Kind       string         `json:"kind"`
	Recipient  string         `json:"recipient,omitempty"` // user ID for notifications
	Data       map[string]any `json:"data,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Emitter publishes events to the external collaborators.
type Emitter interface {
	// Notify hands an event to the notification dispatcher for the recipient.
	Notify(ctx context.Context, kind, recipient string, data map[string]any)
	// Analytics hands an event to the search/analytics indexer.
	Analytics(ctx context.Context, kind string, data map[string]any)
}

// asynqEmitter enqueues events as asynq tasks on Redis.
type asynqEmitter struct {
	client *asynq.Client
}

// NewAsynqEmitter creates an Emitter backed by an asynq client.
func NewAsynqEmitter(client *asynq.Client) Emitter {
	return &asynqEmitter{client: client}
}

func (e *asynqEmitter) Notify(ctx context.Context, kind, recipient string, data map[string]any) {
	e.enqueue(ctx, TaskTypeNotify, Payload{
		Kind:       kind,
		Recipient:  recipient,
		Data:       data,
		OccurredAt: time.Now().UTC(),
	}, asynq.Queue("default"))
}

func (e *asynqEmitter) Analytics(ctx context.Context, kind string, data map[string]any) {
	e.enqueue(ctx, TaskTypeAnalytics, Payload{
		Kind:       kind,
		Data:       data,
		OccurredAt: time.Now().UTC(),
	}, asynq.Queue("low"))
}

func (e *asynqEmitter) enqueue(ctx context.Context, taskType string, p Payload, opts ...asynq.Option) {
	b, err := json.Marshal(p)
	if err != nil {
		log.Printf("WARN: failed to marshal %s event %s: %v", taskType, p.Kind, err)
		return
	}
	if _, err := e.client.EnqueueContext(ctx, asynq.NewTask(taskType, b), opts...); err != nil {
		// Losing an event is acceptable here; the state change it describes
		// has already been committed and must not be rolled back.
		log.Printf("WARN: failed to enqueue %s event %s: %v", taskType, p.Kind, err)
	}
}

// NopEmitter discards all events. Used in tests and tooling.
type NopEmitter struct{}

func (NopEmitter) Notify(ctx context.Context, kind, recipient string, data map[string]any) {}
func (NopEmitter) Analytics(ctx context.Context, kind string, data map[string]any)         {}
