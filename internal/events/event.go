// Package events publishes graph change notifications after a builder
// primitive has committed.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Type identifies what changed in the graph.
type Type string

const (
	TypeGraphWiped           Type = "graph.wiped"
	TypeTopicCreated         Type = "topic.created"
	TypeRelationshipsCreated Type = "relationships.created"
	TypeSubTopicsLinked      Type = "subtopics.linked"
	TypeNodeRenamed          Type = "node.renamed"
)

// Source is the EventBridge source attached to every event.
const Source = "curriculum-graph.builder"

// Event describes one committed builder primitive.
type Event struct {
	ID         string         `json:"id"`
	Type       Type           `json:"type"`
	Operation  string         `json:"operation"`
	OccurredAt time.Time      `json:"occurred_at"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// New stamps an event with a fresh id and the current time.
func New(eventType Type, operation string, payload map[string]any) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		Operation:  operation,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

// Publisher delivers events to interested parties.
type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
}

// Noop discards every event.
type Noop struct{}

// Publish implements Publisher.
func (Noop) Publish(context.Context, ...Event) error { return nil }

// LogPublisher writes events to a zap logger. Useful for local runs where no
// bus is configured.
type LogPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher creates a publisher that logs at info level.
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger.Named("events")}
}

// Publish implements Publisher.
func (p *LogPublisher) Publish(_ context.Context, events ...Event) error {
	for _, e := range events {
		p.logger.Info("graph event",
			zap.String("event_id", e.ID),
			zap.String("type", string(e.Type)),
			zap.String("operation", e.Operation),
			zap.Time("occurred_at", e.OccurredAt),
			zap.Any("payload", e.Payload),
		)
	}
	return nil
}
