package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	apperrors "curriculum-graph/internal/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"
)

// maxBatchSize is the PutEvents entry limit.
const maxBatchSize = 10

// PutEventsAPI is the subset of the EventBridge client the publisher uses.
type PutEventsAPI interface {
	PutEvents(ctx context.Context, params *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error)
}

// EventBridgePublisher sends events to an EventBridge bus.
type EventBridgePublisher struct {
	client       PutEventsAPI
	eventBusName string
	logger       *zap.Logger
}

// NewEventBridgePublisher creates a publisher for the named bus.
func NewEventBridgePublisher(client PutEventsAPI, eventBusName string, logger *zap.Logger) *EventBridgePublisher {
	return &EventBridgePublisher{
		client:       client,
		eventBusName: eventBusName,
		logger:       logger.Named("eventbridge"),
	}
}

// Publish implements Publisher, splitting events into PutEvents batches.
func (p *EventBridgePublisher) Publish(ctx context.Context, events ...Event) error {
	for start := 0; start < len(events); start += maxBatchSize {
		end := start + maxBatchSize
		if end > len(events) {
			end = len(events)
		}
		if err := p.publishBatch(ctx, events[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (p *EventBridgePublisher) publishBatch(ctx context.Context, batch []Event) error {
	entries := make([]types.PutEventsRequestEntry, 0, len(batch))
	for _, e := range batch {
		detail, err := json.Marshal(e)
		if err != nil {
			return apperrors.NewPublishError(fmt.Sprintf("cannot encode %s event", e.Type), false, err)
		}
		entries = append(entries, types.PutEventsRequestEntry{
			EventBusName: aws.String(p.eventBusName),
			Source:       aws.String(Source),
			DetailType:   aws.String(string(e.Type)),
			Detail:       aws.String(string(detail)),
			Time:         aws.Time(e.OccurredAt),
		})
	}

	out, err := p.client.PutEvents(ctx, &eventbridge.PutEventsInput{Entries: entries})
	if err != nil {
		return classifyAWSError(err)
	}

	if out.FailedEntryCount > 0 {
		for i, entry := range out.Entries {
			if entry.ErrorCode == nil || i >= len(batch) {
				continue
			}
			p.logger.Error("event rejected by EventBridge",
				zap.String("event_id", batch[i].ID),
				zap.String("type", string(batch[i].Type)),
				zap.String("error_code", aws.ToString(entry.ErrorCode)),
				zap.String("error_message", aws.ToString(entry.ErrorMessage)),
			)
		}
		return apperrors.NewPublishError(
			fmt.Sprintf("%d of %d events rejected", out.FailedEntryCount, len(entries)), true, nil)
	}

	p.logger.Debug("events published",
		zap.Int("count", len(entries)),
		zap.String("event_bus", p.eventBusName),
	)
	return nil
}

func classifyAWSError(err error) error {
	var ae smithy.APIError
	if !errors.As(err, &ae) {
		return apperrors.NewPublishError("failed to call EventBridge", true, err)
	}

	switch ae.ErrorCode() {
	case "ThrottlingException", "InternalException", "ServiceUnavailableException":
		return apperrors.NewPublishError("EventBridge temporarily unavailable", true, err)
	case "ResourceNotFoundException":
		return apperrors.NewPublishError("event bus not found", false, err)
	case "AccessDeniedException", "UnrecognizedClientException":
		return apperrors.NewPublishError("EventBridge access denied", false, err)
	default:
		return apperrors.NewPublishError(fmt.Sprintf("EventBridge error %s", ae.ErrorCode()), ae.ErrorFault() == smithy.FaultServer, err)
	}
}
