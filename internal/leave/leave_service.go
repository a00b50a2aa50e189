package leave

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Christabll/IST-LeaveManagementService/internal/balance"
	balanceerrors "github.com/Christabll/IST-LeaveManagementService/internal/balance/errors"
	"github.com/Christabll/IST-LeaveManagementService/internal/businessday"
	"github.com/Christabll/IST-LeaveManagementService/internal/events"
	"github.com/Christabll/IST-LeaveManagementService/internal/holiday"
	leaveerrors "github.com/Christabll/IST-LeaveManagementService/internal/leave/errors"
	"github.com/Christabll/IST-LeaveManagementService/internal/leavetype"
	"github.com/Christabll/IST-LeaveManagementService/internal/messaging/kafka"
	"github.com/Christabll/IST-LeaveManagementService/internal/shared/apperror"
	"github.com/Christabll/IST-LeaveManagementService/internal/shared/contextutil"
	"github.com/Christabll/IST-LeaveManagementService/internal/shared/counter"
	"github.com/Christabll/IST-LeaveManagementService/internal/userdir"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

//go:generate mockgen -source=leave_service.go -destination=mock/leave_service_mock.go -package=mock
type Service interface {
	Apply(ctx context.Context, userID string, req ApplyLeaveRequest) (LeaveRequestResponse, error)
	Approve(ctx context.Context, requestID string, req DecisionRequest) (LeaveRequestResponse, error)
	Reject(ctx context.Context, requestID string, req DecisionRequest) (LeaveRequestResponse, error)
	GetMyRequests(ctx context.Context, userID string) ([]LeaveRequestResponse, error)
	GetPending(ctx context.Context) ([]LeaveRequestResponse, error)
	TeamOnLeave(ctx context.Context, from, to time.Time) ([]TeamOnLeaveEntry, error)
}

type service struct {
	db         *sql.DB
	repo       Repository
	balances   balance.Service
	leaveTypes leavetype.Service
	holidays   holiday.Service
	counters   counter.Repository
	outbox     kafka.OutboxRepository
	users      userdir.Client
	logger     *zap.Logger
}

func NewService(
	db *sql.DB,
	repo Repository,
	balances balance.Service,
	leaveTypes leavetype.Service,
	holidays holiday.Service,
	counters counter.Repository,
	outbox kafka.OutboxRepository,
	users userdir.Client,
	logger ...*zap.Logger,
) Service {
	l := zap.L().Named("leave.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("leave.service")
	}
	return &service{
		db:         db,
		repo:       repo,
		balances:   balances,
		leaveTypes: leaveTypes,
		holidays:   holidays,
		counters:   counters,
		outbox:     outbox,
		users:      users,
		logger:     l,
	}
}

// Apply validates and persists a new PENDING request. The submission
// event rides in the same transaction as the request row, so a
// committed request always has its event queued.
func (s *service) Apply(ctx context.Context, userID string, req ApplyLeaveRequest) (LeaveRequestResponse, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return LeaveRequestResponse{}, balanceerrors.ErrInvalidUserID
	}

	start, end, err := parseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		return LeaveRequestResponse{}, err
	}

	lt, err := s.leaveTypes.GetByID(ctx, req.LeaveTypeID)
	if err != nil {
		return LeaveRequestResponse{}, err
	}

	pending, err := s.repo.HasPendingForUser(ctx, userID)
	if err != nil {
		return LeaveRequestResponse{}, err
	}
	if pending {
		return LeaveRequestResponse{}, leaveerrors.ErrPendingRequestExists
	}

	days, err := s.countBusinessDays(ctx, start, end)
	if err != nil {
		return LeaveRequestResponse{}, err
	}
	if days == 0 {
		return LeaveRequestResponse{}, leaveerrors.ErrNoBusinessDays
	}

	if err := s.checkBalance(ctx, userID, lt.ID.String(), start.Year(), days); err != nil {
		return LeaveRequestResponse{}, err
	}

	seq, err := s.counters.GetNextValue(ctx, "global", "leave_request")
	if err != nil {
		return LeaveRequestResponse{}, err
	}

	lr := &LeaveRequest{
		ID:          uuid.New(),
		Reference:   fmt.Sprintf("LR-%06d", seq),
		UserID:      uid,
		LeaveTypeID: lt.ID,
		StartDate:   start,
		EndDate:     end,
		Reason:      req.Reason,
		DocumentURL: req.DocumentURL,
		Status:      StatusPending,
		CreatedAt:   time.Now(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return LeaveRequestResponse{}, err
	}
	defer tx.Rollback()

	if err := s.repo.WithTx(tx).Create(ctx, lr); err != nil {
		return LeaveRequestResponse{}, err
	}
	if err := s.queueLifecycleEvent(ctx, tx, events.LeaveRequestSubmitted, lr, lt.Name, ""); err != nil {
		return LeaveRequestResponse{}, err
	}
	if err := tx.Commit(); err != nil {
		return LeaveRequestResponse{}, err
	}

	s.logger.Info("leave request submitted",
		zap.String("reference", lr.Reference),
		zap.String("user_id", userID),
		zap.String("leave_type", lt.Name),
		zap.Int("business_days", days),
	)

	row := RequestRow{LeaveRequest: *lr, LeaveTypeName: lt.Name}
	return s.mapToResponse(ctx, row, days), nil
}

// Approve moves a pending request to APPROVED and deducts the
// recomputed business-day count in the same transaction. The count is
// recomputed at decision time so holidays declared after submission
// are honored. A serialization failure is retried once.
func (s *service) Approve(ctx context.Context, requestID string, req DecisionRequest) (LeaveRequestResponse, error) {
	resp, err := s.decide(ctx, requestID, StatusApproved, req.Comment)
	if errors.Is(err, apperror.ErrConcurrencyConflict) {
		s.logger.Warn("approve hit a concurrency conflict, retrying once",
			zap.String("leave_request_id", requestID),
		)
		resp, err = s.decide(ctx, requestID, StatusApproved, req.Comment)
	}
	return resp, err
}

func (s *service) Reject(ctx context.Context, requestID string, req DecisionRequest) (LeaveRequestResponse, error) {
	resp, err := s.decide(ctx, requestID, StatusRejected, req.Comment)
	if errors.Is(err, apperror.ErrConcurrencyConflict) {
		resp, err = s.decide(ctx, requestID, StatusRejected, req.Comment)
	}
	return resp, err
}

func (s *service) decide(ctx context.Context, requestID, status, comment string) (LeaveRequestResponse, error) {
	if _, err := uuid.Parse(requestID); err != nil {
		return LeaveRequestResponse{}, leaveerrors.ErrInvalidLeaveRequestID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return LeaveRequestResponse{}, err
	}
	defer tx.Rollback()

	txRepo := s.repo.WithTx(tx)

	row, err := txRepo.FindByIDForUpdate(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return LeaveRequestResponse{}, leaveerrors.ErrLeaveRequestNotFound
		}
		return LeaveRequestResponse{}, err
	}
	if row.IsDecided() {
		return LeaveRequestResponse{}, leaveerrors.ErrAlreadyDecided
	}

	days := 0
	if status == StatusApproved {
		days, err = s.countBusinessDays(ctx, row.StartDate, row.EndDate)
		if err != nil {
			return LeaveRequestResponse{}, err
		}

		err = s.balances.DeductTx(ctx, tx,
			row.UserID.String(), row.LeaveTypeID.String(), row.StartDate.Year(),
			decimal.NewFromInt(int64(days)),
		)
		if err != nil {
			// The request stays PENDING when the balance cannot cover it.
			return LeaveRequestResponse{}, err
		}
	}

	if err := txRepo.UpdateDecision(ctx, requestID, status, comment); err != nil {
		return LeaveRequestResponse{}, err
	}

	row.Status = status
	row.ApproverComment = comment

	eventType := events.LeaveRequestApproved
	if status == StatusRejected {
		eventType = events.LeaveRequestRejected
	}
	if err := s.queueLifecycleEvent(ctx, tx, eventType, &row.LeaveRequest, row.LeaveTypeName, comment); err != nil {
		return LeaveRequestResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		return LeaveRequestResponse{}, err
	}

	s.logger.Info("leave request decided",
		zap.String("reference", row.Reference),
		zap.String("status", status),
		zap.Int("business_days", days),
	)
	return s.mapToResponse(ctx, *row, days), nil
}

func (s *service) GetMyRequests(ctx context.Context, userID string) ([]LeaveRequestResponse, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, balanceerrors.ErrInvalidUserID
	}

	rows, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.mapToListResponse(ctx, rows), nil
}

func (s *service) GetPending(ctx context.Context) ([]LeaveRequestResponse, error) {
	rows, err := s.repo.FindByStatus(ctx, StatusPending)
	if err != nil {
		return nil, err
	}
	return s.mapToListResponse(ctx, rows), nil
}

// TeamOnLeave lists approved requests overlapping the window, enriched
// with directory names on a best-effort basis.
func (s *service) TeamOnLeave(ctx context.Context, from, to time.Time) ([]TeamOnLeaveEntry, error) {
	if from.After(to) {
		return nil, businessday.ErrInvalidRange
	}

	rows, err := s.repo.FindApprovedOverlapping(ctx, from, to)
	if err != nil {
		return nil, err
	}

	entries := make([]TeamOnLeaveEntry, 0, len(rows))
	for _, row := range rows {
		entry := TeamOnLeaveEntry{
			UserID:    row.UserID.String(),
			LeaveType: row.LeaveTypeName,
			StartDate: row.StartDate.Format(dateLayout),
			EndDate:   row.EndDate.Format(dateLayout),
		}
		if name, err := s.users.GetUserFullName(ctx, entry.UserID); err == nil {
			entry.FullName = name
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

func (s *service) countBusinessDays(ctx context.Context, start, end time.Time) (int, error) {
	hs, err := s.holidays.Between(ctx, start, end)
	if err != nil {
		return 0, err
	}
	return businessday.Count(start, end, hs)
}

// checkBalance is an advisory pre-check at submission time; the
// binding check happens again under lock at approval. Get provisions
// the ledger itself when the user has none yet.
func (s *service) checkBalance(ctx context.Context, userID, leaveTypeID string, year, days int) error {
	row, err := s.balances.Get(ctx, userID, leaveTypeID, year)
	if err != nil {
		return err
	}

	if row.RemainingDays.LessThan(decimal.NewFromInt(int64(days))) {
		return balanceerrors.ErrInsufficientBalance
	}
	return nil
}

func (s *service) queueLifecycleEvent(ctx context.Context, tx *sql.Tx, eventType string, lr *LeaveRequest, leaveTypeName, comment string) error {
	payload, err := json.Marshal(events.LeaveRequestLifecycleEvent{
		EventType:       eventType,
		RequestID:       contextutil.GetRequestID(ctx),
		LeaveRequestID:  lr.ID.String(),
		UserID:          lr.UserID.String(),
		LeaveType:       leaveTypeName,
		StartDate:       lr.StartDate.Format(dateLayout),
		EndDate:         lr.EndDate.Format(dateLayout),
		Status:          lr.Status,
		ApproverComment: comment,
		OccurredAt:      time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	return s.outbox.WithTx(tx).Create(ctx, kafka.OutboxEvent{
		ID:            uuid.NewString(),
		RequestID:     contextutil.GetRequestID(ctx),
		AggregateType: "leave_request",
		AggregateID:   lr.ID.String(),
		EventType:     eventType,
		Topic:         events.LeaveRequestLifecycleTopic,
		Payload:       payload,
		Status:        kafka.OutboxStatusPending,
	})
}

func parseDateRange(startRaw, endRaw string) (time.Time, time.Time, error) {
	start, err := time.Parse(dateLayout, startRaw)
	if err != nil {
		return time.Time{}, time.Time{}, leaveerrors.ErrInvalidDateFormat
	}
	end, err := time.Parse(dateLayout, endRaw)
	if err != nil {
		return time.Time{}, time.Time{}, leaveerrors.ErrInvalidDateFormat
	}
	if start.After(end) {
		return time.Time{}, time.Time{}, businessday.ErrInvalidRange
	}
	return start, end, nil
}

func (s *service) mapToResponse(ctx context.Context, row RequestRow, days int) LeaveRequestResponse {
	resp := LeaveRequestResponse{
		ID:              row.ID.String(),
		Reference:       row.Reference,
		UserID:          row.UserID.String(),
		LeaveType:       row.LeaveTypeName,
		StartDate:       row.StartDate.Format(dateLayout),
		EndDate:         row.EndDate.Format(dateLayout),
		Reason:          row.Reason,
		DocumentURL:     row.DocumentURL,
		Status:          row.Status,
		ApproverComment: row.ApproverComment,
		CreatedAt:       row.CreatedAt.Format(time.RFC3339),
	}
	if days > 0 {
		resp.BusinessDays = decimal.NewFromInt(int64(days)).String()
	}
	return resp
}

func (s *service) mapToListResponse(ctx context.Context, rows []RequestRow) []LeaveRequestResponse {
	resp := make([]LeaveRequestResponse, len(rows))
	for i, row := range rows {
		days, err := s.countBusinessDays(ctx, row.StartDate, row.EndDate)
		if err != nil {
			days = 0
		}
		resp[i] = s.mapToResponse(ctx, row, days)
	}
	return resp
}
