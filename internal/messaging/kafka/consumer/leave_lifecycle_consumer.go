package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Christabll/IST-LeaveManagementService/internal/events"
	"github.com/Christabll/IST-LeaveManagementService/internal/notification"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// RunLeaveLifecycleConsumer reads lifecycle events and materializes
// in-app notifications for the affected user. Messages that cannot be
// decoded are committed and dropped; replaying them would never
// succeed.
func RunLeaveLifecycleConsumer(
	ctx context.Context,
	reader *kafkago.Reader,
	notifications notification.Service,
	logger *zap.Logger,
) {
	log := logger.Named("kafka.consumer.leave_lifecycle")
	log.Info("leave lifecycle consumer started", zap.String("topic", events.LeaveRequestLifecycleTopic))

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("leave lifecycle consumer stopped")
				return
			}
			log.Error("fetch message failed", zap.Error(err))
			continue
		}

		if err := handleMessage(ctx, msg, notifications, log); err != nil {
			log.Error("handle lifecycle event failed",
				zap.String("topic", msg.Topic),
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
			// Leave the offset uncommitted so the event is retried.
			continue
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error("commit offset failed", zap.Error(err))
		}
	}
}

func handleMessage(
	ctx context.Context,
	msg kafkago.Message,
	notifications notification.Service,
	log *zap.Logger,
) error {
	var event events.LeaveRequestLifecycleEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		log.Warn("dropping undecodable lifecycle event",
			zap.Int64("offset", msg.Offset),
			zap.Error(err),
		)
		return nil
	}

	message := notificationMessage(event)
	if message == "" {
		log.Warn("dropping lifecycle event with unknown type",
			zap.String("event_type", event.EventType),
		)
		return nil
	}

	if err := notifications.Notify(ctx, event.UserID, message); err != nil {
		return err
	}

	log.Info("notification created from lifecycle event",
		zap.String("event_type", event.EventType),
		zap.String("leave_request_id", event.LeaveRequestID),
	)
	return nil
}

func notificationMessage(event events.LeaveRequestLifecycleEvent) string {
	switch event.EventType {
	case events.LeaveRequestSubmitted:
		return fmt.Sprintf("Your %s request for %s to %s was submitted and is awaiting approval.",
			event.LeaveType, event.StartDate, event.EndDate)
	case events.LeaveRequestApproved:
		if event.ApproverComment != "" {
			return fmt.Sprintf("Your %s request for %s to %s was approved: %s",
				event.LeaveType, event.StartDate, event.EndDate, event.ApproverComment)
		}
		return fmt.Sprintf("Your %s request for %s to %s was approved.",
			event.LeaveType, event.StartDate, event.EndDate)
	case events.LeaveRequestRejected:
		if event.ApproverComment != "" {
			return fmt.Sprintf("Your %s request for %s to %s was rejected: %s",
				event.LeaveType, event.StartDate, event.EndDate, event.ApproverComment)
		}
		return fmt.Sprintf("Your %s request for %s to %s was rejected.",
			event.LeaveType, event.StartDate, event.EndDate)
	default:
		return ""
	}
}
