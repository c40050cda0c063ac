package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"pos-service/internal/models"
	"pos-service/internal/util"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// NewBaseEvent stamps a fresh event id and time.
func NewBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}

// EventPublisher handles publishing bill events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

func billKey(billID int64) string {
	return fmt.Sprintf("bill-%d", billID)
}

func (ep *EventPublisher) PublishBillCreated(ctx context.Context, event *models.BillCreatedEvent) error {
	return ep.producer.PublishEvent(ctx, billKey(event.BillID), event)
}

func (ep *EventPublisher) PublishBillLineRefunded(ctx context.Context, event *models.BillLineRefundedEvent) error {
	return ep.producer.PublishEvent(ctx, billKey(event.BillID), event)
}

func (ep *EventPublisher) PublishBillStatusChanged(ctx context.Context, event *models.BillStatusChangedEvent) error {
	return ep.producer.PublishEvent(ctx, billKey(event.BillID), event)
}

func (ep *EventPublisher) PublishHistoryFlushed(ctx context.Context, event *models.HistoryFlushedEvent) error {
	return ep.producer.PublishEvent(ctx, "maintenance", event)
}

// EventHandler routes incoming bill events to registered callbacks
type EventHandler struct {
	onBillCreated       func(context.Context, *models.BillCreatedEvent) error
	onBillLineRefunded  func(context.Context, *models.BillLineRefundedEvent) error
	onBillStatusChanged func(context.Context, *models.BillStatusChangedEvent) error
	onHistoryFlushed    func(context.Context, *models.HistoryFlushedEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

func (eh *EventHandler) OnBillCreated(handler func(context.Context, *models.BillCreatedEvent) error) {
	eh.onBillCreated = handler
}

func (eh *EventHandler) OnBillLineRefunded(handler func(context.Context, *models.BillLineRefundedEvent) error) {
	eh.onBillLineRefunded = handler
}

func (eh *EventHandler) OnBillStatusChanged(handler func(context.Context, *models.BillStatusChangedEvent) error) {
	eh.onBillStatusChanged = handler
}

func (eh *EventHandler) OnHistoryFlushed(handler func(context.Context, *models.HistoryFlushedEvent) error) {
	eh.onHistoryFlushed = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	util.GetLogger().Debug("Handling event",
		zap.String("type", baseEvent.EventType),
		zap.String("id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeBillCreated:
		if eh.onBillCreated != nil {
			var event models.BillCreatedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal BillCreated event: %w", err)
			}
			return eh.onBillCreated(ctx, &event)
		}

	case models.EventTypeBillLineRefunded:
		if eh.onBillLineRefunded != nil {
			var event models.BillLineRefundedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal BillLineRefunded event: %w", err)
			}
			return eh.onBillLineRefunded(ctx, &event)
		}

	case models.EventTypeBillStatusChanged:
		if eh.onBillStatusChanged != nil {
			var event models.BillStatusChangedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal BillStatusChanged event: %w", err)
			}
			return eh.onBillStatusChanged(ctx, &event)
		}

	case models.EventTypeHistoryFlushed:
		if eh.onHistoryFlushed != nil {
			var event models.HistoryFlushedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal HistoryFlushed event: %w", err)
			}
			return eh.onHistoryFlushed(ctx, &event)
		}

	default:
		util.GetLogger().Warn("Unhandled event type", zap.String("type", baseEvent.EventType))
	}

	return nil
}
