package app

import (
	"context"

	"github.com/Christabll/IST-LeaveManagementService/internal/events"
	"github.com/Christabll/IST-LeaveManagementService/internal/messaging/kafka/consumer"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// RunConsumer reads lifecycle events and materializes notifications
// until the context is canceled.
func RunConsumer(ctx context.Context, reg *Registry, kafkaBroker string, logger *zap.Logger) error {
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  []string{kafkaBroker},
		GroupID:  "leave-management-notifications",
		Topic:    events.LeaveRequestLifecycleTopic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	defer reader.Close()

	consumer.RunLeaveLifecycleConsumer(ctx, reader, reg.NotificationService, logger)
	return nil
}
