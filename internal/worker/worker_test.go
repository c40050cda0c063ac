package worker

import (
	"context"
	"encoding/json"
	"testing"

	"pos-service/internal/broker"
	"pos-service/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingInvalidator struct {
	calls int
}

func (c *countingInvalidator) InvalidateReports(context.Context) error {
	c.calls++
	return nil
}

func message(t *testing.T, event interface{}) kafka.Message {
	t.Helper()
	raw, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Value: raw}
}

func TestReportEventHandler_InvalidatesOnBillEvents(t *testing.T) {
	inv := &countingInvalidator{}
	handler := NewReportEventHandler(inv)
	ctx := context.Background()

	events := []interface{}{
		&models.BillCreatedEvent{BaseEvent: broker.NewBaseEvent(models.EventTypeBillCreated), BillID: 1},
		&models.BillLineRefundedEvent{BaseEvent: broker.NewBaseEvent(models.EventTypeBillLineRefunded), BillID: 1},
		&models.BillStatusChangedEvent{BaseEvent: broker.NewBaseEvent(models.EventTypeBillStatusChanged), BillID: 1},
		&models.HistoryFlushedEvent{BaseEvent: broker.NewBaseEvent(models.EventTypeHistoryFlushed)},
	}
	for _, e := range events {
		require.NoError(t, handler.HandleMessage(ctx, message(t, e)))
	}

	assert.Equal(t, 4, inv.calls)
}

func TestReportEventHandler_IgnoresUnknownEvents(t *testing.T) {
	inv := &countingInvalidator{}
	handler := NewReportEventHandler(inv)

	err := handler.HandleMessage(context.Background(), message(t, broker.NewBaseEvent("SOMETHING_ELSE")))

	assert.NoError(t, err)
	assert.Zero(t, inv.calls)
}

func TestReportEventHandler_RejectsGarbage(t *testing.T) {
	handler := NewReportEventHandler(&countingInvalidator{})

	err := handler.HandleMessage(context.Background(), kafka.Message{Value: []byte("not json")})

	assert.Error(t, err)
}
