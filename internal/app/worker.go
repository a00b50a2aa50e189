package app

import (
	"context"
	"time"

	"github.com/Christabll/IST-LeaveManagementService/internal/messaging/kafka/producer"
	"github.com/Christabll/IST-LeaveManagementService/internal/scheduler"
	"github.com/Christabll/IST-LeaveManagementService/internal/shared/connection"

	"go.uber.org/zap"
)

// RunWorkers starts the outbox publisher and the batch scheduler and
// blocks until the context is canceled.
func RunWorkers(ctx context.Context, reg *Registry, kafkaBroker string, logger *zap.Logger) error {
	writer, err := connection.ConnectKafkaWithRetry(kafkaBroker, 5)
	if err != nil {
		return err
	}
	defer writer.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		producer.ProcessOutboxEvents(ctx, reg.OutboxRepo, writer, logger, 3*time.Second)
	}()

	scheduler.Run(ctx, reg.SchedulerService, logger, time.Hour)

	<-done
	return nil
}
