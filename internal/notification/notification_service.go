package notification

import (
	"context"
	"time"

	"github.com/Christabll/IST-LeaveManagementService/internal/shared/apperror"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

//go:generate mockgen -source=notification_service.go -destination=mock/notification_service_mock.go -package=mock
type Service interface {
	Notify(ctx context.Context, userID, message string) error
	GetUserNotifications(ctx context.Context, userID string) ([]NotificationResponse, error)
	MarkAllAsRead(ctx context.Context, userID string) error
}

type service struct {
	repo   Repository
	logger *zap.Logger
}

func NewService(repo Repository, logger ...*zap.Logger) Service {
	l := zap.L().Named("notification.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("notification.service")
	}
	return &service{repo: repo, logger: l}
}

func (s *service) Notify(ctx context.Context, userID, message string) error {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return apperror.InvalidField("user id")
	}

	n := &Notification{
		ID:      uuid.New(),
		UserID:  uid,
		Message: message,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		s.logger.Error("create notification failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return err
	}

	return nil
}

func (s *service) GetUserNotifications(ctx context.Context, userID string) ([]NotificationResponse, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, apperror.InvalidField("user id")
	}

	notifications, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp := make([]NotificationResponse, len(notifications))
	for i, n := range notifications {
		resp[i] = NotificationResponse{
			ID:        n.ID.String(),
			Message:   n.Message,
			Read:      n.Read,
			CreatedAt: n.CreatedAt.Format(time.RFC3339),
		}
	}
	return resp, nil
}

func (s *service) MarkAllAsRead(ctx context.Context, userID string) error {
	if _, err := uuid.Parse(userID); err != nil {
		return apperror.InvalidField("user id")
	}
	return s.repo.MarkAllRead(ctx, userID)
}
