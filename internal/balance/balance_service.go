package balance

import (
	"context"
	"database/sql"
	"errors"
	"time"

	balanceerrors "github.com/Christabll/IST-LeaveManagementService/internal/balance/errors"
	"github.com/Christabll/IST-LeaveManagementService/internal/leavetype"
	"github.com/Christabll/IST-LeaveManagementService/internal/shared/apperror"
	"github.com/Christabll/IST-LeaveManagementService/internal/shared/days"
	"github.com/Christabll/IST-LeaveManagementService/internal/userdir"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	// accrualIncrement is the monthly top-up applied to accrual-eligible
	// balances, capped at the type's default allocation.
	accrualIncrement = decimal.NewFromFloat(1.66)

	// maxCarryOver bounds how many unused days roll into the next year.
	maxCarryOver = decimal.NewFromInt(5)
)

// ApprovedDaysSource reports the total business days consumed by
// approved leave requests for one ledger row. The leave package
// provides the implementation; wiring it through an interface keeps
// this package free of a dependency on request storage.
type ApprovedDaysSource interface {
	ApprovedDays(ctx context.Context, userID, leaveTypeID string, year int) (decimal.Decimal, error)
}

//go:generate mockgen -source=balance_service.go -destination=mock/balance_service_mock.go -package=mock
type Service interface {
	InitializeForUser(ctx context.Context, userID string, year int) error
	InitializeAllUsers(ctx context.Context, year int) (BatchResult, error)
	GetBalances(ctx context.Context, userID string, year int) ([]LeaveBalanceResponse, error)
	Get(ctx context.Context, userID, leaveTypeID string, year int) (*BalanceRow, error)
	Adjust(ctx context.Context, userID, leaveTypeID string, year int, req AdjustBalanceRequest) (LeaveBalanceResponse, error)
	// DeductTx consumes days inside the caller's transaction. The row is
	// locked for the remainder of the transaction, so approval and
	// deduction commit or roll back together.
	DeductTx(ctx context.Context, tx *sql.Tx, userID, leaveTypeID string, year int, amount decimal.Decimal) error
	AccrueMonthly(ctx context.Context, now time.Time) (BatchResult, error)
	CarryOverYearEnd(ctx context.Context, fromYear int) (BatchResult, error)
	SetApprovedDaysSource(src ApprovedDaysSource)
}

type service struct {
	db         *sql.DB
	repo       Repository
	leaveTypes leavetype.Service
	users      userdir.Client
	approved   ApprovedDaysSource
	skipManual bool
	logger     *zap.Logger
}

// NewService builds the ledger service. skipManual controls whether
// monthly accrual leaves manually adjusted rows alone.
func NewService(
	db *sql.DB,
	repo Repository,
	leaveTypes leavetype.Service,
	users userdir.Client,
	skipManual bool,
	logger ...*zap.Logger,
) Service {
	l := zap.L().Named("balance.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("balance.service")
	}
	return &service{
		db:         db,
		repo:       repo,
		leaveTypes: leaveTypes,
		users:      users,
		skipManual: skipManual,
		logger:     l,
	}
}

// SetApprovedDaysSource is called once during wiring, after the leave
// package has been constructed.
func (s *service) SetApprovedDaysSource(src ApprovedDaysSource) {
	s.approved = src
}

// InitializeForUser creates one ledger row per catalog leave type for
// the given year. Rows that already exist are left untouched, so the
// call is safe to repeat.
func (s *service) InitializeForUser(ctx context.Context, userID string, year int) error {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return balanceerrors.ErrInvalidUserID
	}

	types, err := s.leaveTypes.ListAll(ctx)
	if err != nil {
		return err
	}

	for _, lt := range types {
		_, err := s.repo.FindByUserTypeYear(ctx, userID, lt.ID.String(), year)
		if err == nil {
			s.logger.Debug("balance already initialized",
				zap.String("user_id", userID),
				zap.String("leave_type", lt.Name),
				zap.Int("year", year),
			)
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		b := &LeaveBalance{
			ID:                uuid.New(),
			UserID:            uid,
			LeaveTypeID:       lt.ID,
			Year:              year,
			DefaultAllocation: lt.DefaultAllocation,
			CarryOver:         decimal.Zero,
			UsedDays:          decimal.Zero,
		}
		b.Recompute()

		if err := s.repo.Insert(ctx, b); err != nil {
			// A concurrent initializer already created the row.
			if isUniqueViolation(err) {
				continue
			}
			return err
		}
	}

	s.logger.Info("leave balances initialized",
		zap.String("user_id", userID),
		zap.Int("year", year),
	)
	return nil
}

// InitializeAllUsers provisions ledgers for every user known to the
// directory. One user failing never stops the run.
func (s *service) InitializeAllUsers(ctx context.Context, year int) (BatchResult, error) {
	var result BatchResult

	seen := map[string]struct{}{}
	for _, role := range []string{"STAFF", "MANAGER", "ADMIN"} {
		ids, err := s.users.GetUsersByRole(ctx, role)
		if err != nil {
			s.logger.Error("list users by role failed",
				zap.String("role", role),
				zap.Error(err),
			)
			return result, err
		}
		for _, id := range ids {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}

			result.Processed++
			if err := s.InitializeForUser(ctx, id, year); err != nil {
				result.Failed++
				s.logger.Error("initialize balances failed",
					zap.String("user_id", id),
					zap.Int("year", year),
					zap.Error(err),
				)
				continue
			}
			result.Succeeded++
		}
	}

	s.logger.Info("bulk balance initialization finished",
		zap.Int("year", year),
		zap.Int("processed", result.Processed),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

// GetBalances returns the user's ledger for the year, provisioning it
// on first read. Used days are reconciled against approved requests
// unless a row was manually adjusted.
func (s *service) GetBalances(ctx context.Context, userID string, year int) ([]LeaveBalanceResponse, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, balanceerrors.ErrInvalidUserID
	}

	count, err := s.repo.CountByUserAndYear(ctx, userID, year)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		if err := s.InitializeForUser(ctx, userID, year); err != nil {
			return nil, err
		}
	}

	rows, err := s.repo.FindByUserAndYear(ctx, userID, year)
	if err != nil {
		return nil, err
	}

	resp := make([]LeaveBalanceResponse, 0, len(rows))
	for i := range rows {
		row := &rows[i]
		if !row.ManuallyAdjusted {
			if err := s.reconcileUsedDays(ctx, row); err != nil {
				s.logger.Warn("used days reconciliation failed",
					zap.String("user_id", userID),
					zap.String("leave_type", row.LeaveTypeName),
					zap.Error(err),
				)
			}
		}
		resp = append(resp, mapRowToResponse(*row))
	}

	return resp, nil
}

// reconcileUsedDays realigns a row's used days with the approved
// request history. The delta is applied to the remaining balance so
// that accrued days survive the correction.
func (s *service) reconcileUsedDays(ctx context.Context, row *BalanceRow) error {
	if s.approved == nil {
		return nil
	}

	used, err := s.approved.ApprovedDays(ctx, row.UserID.String(), row.LeaveTypeID.String(), row.Year)
	if err != nil {
		return err
	}
	if used.Equal(row.UsedDays) {
		return nil
	}

	delta := used.Sub(row.UsedDays)
	row.UsedDays = used
	row.RemainingDays = row.RemainingDays.Sub(delta)

	return s.repo.Update(ctx, &row.LeaveBalance)
}

// Get returns one ledger row, provisioning the user's ledger for the
// year on first read. NotFound only remains for types absent from the
// catalog.
func (s *service) Get(ctx context.Context, userID, leaveTypeID string, year int) (*BalanceRow, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, balanceerrors.ErrInvalidUserID
	}
	if _, err := uuid.Parse(leaveTypeID); err != nil {
		return nil, balanceerrors.ErrInvalidLeaveTypeID
	}

	row, err := s.repo.FindByUserTypeYear(ctx, userID, leaveTypeID, year)
	if errors.Is(err, sql.ErrNoRows) {
		if err := s.InitializeForUser(ctx, userID, year); err != nil {
			return nil, err
		}
		row, err = s.repo.FindByUserTypeYear(ctx, userID, leaveTypeID, year)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, balanceerrors.ErrBalanceNotFound
		}
		return nil, err
	}
	return row, nil
}

// Adjust overrides exactly one ledger field and marks the row as
// manually adjusted, which exempts it from automatic reconciliation.
func (s *service) Adjust(ctx context.Context, userID, leaveTypeID string, year int, req AdjustBalanceRequest) (LeaveBalanceResponse, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return LeaveBalanceResponse{}, balanceerrors.ErrInvalidUserID
	}
	if _, err := uuid.Parse(leaveTypeID); err != nil {
		return LeaveBalanceResponse{}, balanceerrors.ErrInvalidLeaveTypeID
	}

	set := 0
	for _, f := range []*float64{req.DefaultAllocation, req.UsedDays, req.CarryOver} {
		if f != nil {
			if *f < 0 {
				return LeaveBalanceResponse{}, balanceerrors.ErrNegativeDays
			}
			set++
		}
	}
	if set != 1 {
		return LeaveBalanceResponse{}, balanceerrors.ErrAdjustFieldRequired
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return LeaveBalanceResponse{}, err
	}
	defer tx.Rollback()

	txRepo := s.repo.WithTx(tx)

	row, err := txRepo.FindByUserTypeYearForUpdate(ctx, userID, leaveTypeID, year)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return LeaveBalanceResponse{}, balanceerrors.ErrBalanceNotFound
		}
		return LeaveBalanceResponse{}, mapPgError(err)
	}

	switch {
	case req.DefaultAllocation != nil:
		row.DefaultAllocation = decimal.NewFromFloat(*req.DefaultAllocation)
	case req.UsedDays != nil:
		row.UsedDays = decimal.NewFromFloat(*req.UsedDays)
	case req.CarryOver != nil:
		row.CarryOver = decimal.NewFromFloat(*req.CarryOver)
	}
	row.ManuallyAdjusted = true
	row.Recompute()

	if err := txRepo.Update(ctx, &row.LeaveBalance); err != nil {
		return LeaveBalanceResponse{}, mapPgError(err)
	}

	if err := tx.Commit(); err != nil {
		return LeaveBalanceResponse{}, mapPgError(err)
	}

	s.logger.Info("leave balance manually adjusted",
		zap.String("user_id", userID),
		zap.String("leave_type", row.LeaveTypeName),
		zap.Int("year", year),
		zap.String("remaining_days", row.RemainingDays.String()),
	)
	return mapRowToResponse(*row), nil
}

func (s *service) DeductTx(ctx context.Context, tx *sql.Tx, userID, leaveTypeID string, year int, amount decimal.Decimal) error {
	if amount.Sign() < 0 {
		return balanceerrors.ErrNegativeDays
	}

	txRepo := s.repo.WithTx(tx)

	row, err := txRepo.FindByUserTypeYearForUpdate(ctx, userID, leaveTypeID, year)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return balanceerrors.ErrBalanceNotFound
		}
		return mapPgError(err)
	}

	if row.RemainingDays.LessThan(amount) {
		return balanceerrors.ErrInsufficientBalance
	}

	row.UsedDays = row.UsedDays.Add(amount)
	row.RemainingDays = row.RemainingDays.Sub(amount)

	if err := txRepo.Update(ctx, &row.LeaveBalance); err != nil {
		return mapPgError(err)
	}

	s.logger.Info("leave balance deducted",
		zap.String("user_id", userID),
		zap.String("leave_type", row.LeaveTypeName),
		zap.String("days", amount.String()),
		zap.String("remaining_days", row.RemainingDays.String()),
	)
	return nil
}

// AccrueMonthly grows every accrual-eligible current-year balance by
// the monthly increment, never past the default allocation. Each row
// runs in its own transaction so one failure cannot poison the batch.
func (s *service) AccrueMonthly(ctx context.Context, now time.Time) (BatchResult, error) {
	year := now.Year()

	rows, err := s.repo.FindByYear(ctx, year)
	if err != nil {
		return BatchResult{}, err
	}

	var result BatchResult
	for i := range rows {
		row := &rows[i]
		if !row.AccrualEligible {
			continue
		}
		if s.skipManual && row.ManuallyAdjusted {
			continue
		}

		result.Processed++
		if err := s.accrueRow(ctx, row); err != nil {
			result.Failed++
			s.logger.Error("monthly accrual failed for row",
				zap.String("user_id", row.UserID.String()),
				zap.String("leave_type", row.LeaveTypeName),
				zap.Error(err),
			)
			continue
		}
		result.Succeeded++
	}

	s.logger.Info("monthly accrual finished",
		zap.Int("year", year),
		zap.Int("processed", result.Processed),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

func (s *service) accrueRow(ctx context.Context, row *BalanceRow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	txRepo := s.repo.WithTx(tx)

	// Re-read under lock; the snapshot from the batch listing may be
	// stale by the time this row is reached.
	fresh, err := txRepo.FindByUserTypeYearForUpdate(ctx, row.UserID.String(), row.LeaveTypeID.String(), row.Year)
	if err != nil {
		return mapPgError(err)
	}
	if s.skipManual && fresh.ManuallyAdjusted {
		return tx.Commit()
	}

	if fresh.RemainingDays.GreaterThanOrEqual(fresh.DefaultAllocation) {
		return tx.Commit()
	}

	next := fresh.RemainingDays.Add(accrualIncrement)
	if next.GreaterThan(fresh.DefaultAllocation) {
		next = fresh.DefaultAllocation
	}
	fresh.RemainingDays = next

	if err := txRepo.Update(ctx, &fresh.LeaveBalance); err != nil {
		return mapPgError(err)
	}

	return tx.Commit()
}

// CarryOverYearEnd rolls up to maxCarryOver unused days from fromYear
// into each user's next-year ledger, creating next-year rows from the
// current catalog defaults when missing. Only accrual-eligible types
// carry over; sick and maternity style balances expire with the year.
func (s *service) CarryOverYearEnd(ctx context.Context, fromYear int) (BatchResult, error) {
	rows, err := s.repo.FindByYear(ctx, fromYear)
	if err != nil {
		return BatchResult{}, err
	}

	var result BatchResult
	for i := range rows {
		row := &rows[i]
		if !row.AccrualEligible {
			continue
		}

		result.Processed++
		if err := s.carryOverRow(ctx, row); err != nil {
			result.Failed++
			s.logger.Error("year-end carry over failed for row",
				zap.String("user_id", row.UserID.String()),
				zap.String("leave_type", row.LeaveTypeName),
				zap.Error(err),
			)
			continue
		}
		result.Succeeded++
	}

	s.logger.Info("year-end carry over finished",
		zap.Int("from_year", fromYear),
		zap.Int("processed", result.Processed),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

func (s *service) carryOverRow(ctx context.Context, row *BalanceRow) error {
	carry := row.RemainingDays
	if carry.Sign() < 0 {
		carry = decimal.Zero
	}
	if carry.GreaterThan(maxCarryOver) {
		carry = maxCarryOver
	}

	nextYear := row.Year + 1

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	txRepo := s.repo.WithTx(tx)

	next, err := txRepo.FindByUserTypeYearForUpdate(ctx, row.UserID.String(), row.LeaveTypeID.String(), nextYear)
	switch {
	case err == nil:
		next.CarryOver = carry
		next.Recompute()
		if err := txRepo.Update(ctx, &next.LeaveBalance); err != nil {
			return mapPgError(err)
		}
	case errors.Is(err, sql.ErrNoRows):
		lt, err := s.leaveTypes.GetByID(ctx, row.LeaveTypeID.String())
		if err != nil {
			return err
		}
		b := &LeaveBalance{
			ID:                uuid.New(),
			UserID:            row.UserID,
			LeaveTypeID:       row.LeaveTypeID,
			Year:              nextYear,
			DefaultAllocation: lt.DefaultAllocation,
			CarryOver:         carry,
			UsedDays:          decimal.Zero,
		}
		b.Recompute()
		if err := txRepo.Insert(ctx, b); err != nil {
			return mapPgError(err)
		}
	default:
		return mapPgError(err)
	}

	return tx.Commit()
}

func mapRowToResponse(row BalanceRow) LeaveBalanceResponse {
	return LeaveBalanceResponse{
		LeaveTypeID:       row.LeaveTypeID.String(),
		LeaveType:         row.LeaveTypeName,
		Year:              row.Year,
		DefaultAllocation: days.Format(row.DefaultAllocation),
		CarryOver:         days.Format(row.CarryOver),
		UsedDays:          days.Format(row.UsedDays),
		RemainingDays:     days.Format(row.RemainingDays),
		ManuallyAdjusted:  row.ManuallyAdjusted,
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// mapPgError translates driver-level failures into the shared error
// taxonomy. Serialization and deadlock failures surface as retryable
// concurrency conflicts.
func mapPgError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return apperror.ErrConflict
		case "40001", "40P01":
			return apperror.ErrConcurrencyConflict
		}
	}
	return err
}
