package leave

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/Christabll/IST-LeaveManagementService/internal/balance"
	balanceerrors "github.com/Christabll/IST-LeaveManagementService/internal/balance/errors"
	"github.com/Christabll/IST-LeaveManagementService/internal/businessday"
	"github.com/Christabll/IST-LeaveManagementService/internal/holiday"
	leaveerrors "github.com/Christabll/IST-LeaveManagementService/internal/leave/errors"
	"github.com/Christabll/IST-LeaveManagementService/internal/leavetype"
	"github.com/Christabll/IST-LeaveManagementService/internal/messaging/kafka"
)

type fakeLeaveRepo struct {
	createFn       func(ctx context.Context, lr *LeaveRequest) error
	findByIDLockFn func(ctx context.Context, id string) (*RequestRow, error)
	findByUserFn   func(ctx context.Context, userID string) ([]RequestRow, error)
	findByStatusFn func(ctx context.Context, status string) ([]RequestRow, error)
	hasPendingFn   func(ctx context.Context, userID string) (bool, error)
	updateFn       func(ctx context.Context, id, status, comment string) error
	overlappingFn  func(ctx context.Context, from, to time.Time) ([]RequestRow, error)
}

func (f *fakeLeaveRepo) WithTx(tx *sql.Tx) Repository { return f }
func (f *fakeLeaveRepo) Create(ctx context.Context, lr *LeaveRequest) error {
	return f.createFn(ctx, lr)
}
func (f *fakeLeaveRepo) FindByID(ctx context.Context, id string) (*RequestRow, error) {
	return f.findByIDLockFn(ctx, id)
}
func (f *fakeLeaveRepo) FindByIDForUpdate(ctx context.Context, id string) (*RequestRow, error) {
	return f.findByIDLockFn(ctx, id)
}
func (f *fakeLeaveRepo) FindByUser(ctx context.Context, userID string) ([]RequestRow, error) {
	return f.findByUserFn(ctx, userID)
}
func (f *fakeLeaveRepo) FindByStatus(ctx context.Context, status string) ([]RequestRow, error) {
	return f.findByStatusFn(ctx, status)
}
func (f *fakeLeaveRepo) HasPendingForUser(ctx context.Context, userID string) (bool, error) {
	return f.hasPendingFn(ctx, userID)
}
func (f *fakeLeaveRepo) UpdateDecision(ctx context.Context, id, status, comment string) error {
	return f.updateFn(ctx, id, status, comment)
}
func (f *fakeLeaveRepo) FindApprovedByUserTypeYear(ctx context.Context, userID, leaveTypeID string, year int) ([]RequestRow, error) {
	return nil, nil
}
func (f *fakeLeaveRepo) FindApprovedOverlapping(ctx context.Context, from, to time.Time) ([]RequestRow, error) {
	return f.overlappingFn(ctx, from, to)
}

type fakeBalanceService struct {
	getFn    func(ctx context.Context, userID, leaveTypeID string, year int) (*balance.BalanceRow, error)
	deductFn func(ctx context.Context, tx *sql.Tx, userID, leaveTypeID string, year int, amount decimal.Decimal) error
}

func (f *fakeBalanceService) InitializeForUser(ctx context.Context, userID string, year int) error {
	return nil
}
func (f *fakeBalanceService) InitializeAllUsers(ctx context.Context, year int) (balance.BatchResult, error) {
	return balance.BatchResult{}, nil
}
func (f *fakeBalanceService) GetBalances(ctx context.Context, userID string, year int) ([]balance.LeaveBalanceResponse, error) {
	return nil, nil
}
func (f *fakeBalanceService) Get(ctx context.Context, userID, leaveTypeID string, year int) (*balance.BalanceRow, error) {
	return f.getFn(ctx, userID, leaveTypeID, year)
}
func (f *fakeBalanceService) Adjust(ctx context.Context, userID, leaveTypeID string, year int, req balance.AdjustBalanceRequest) (balance.LeaveBalanceResponse, error) {
	return balance.LeaveBalanceResponse{}, nil
}
func (f *fakeBalanceService) DeductTx(ctx context.Context, tx *sql.Tx, userID, leaveTypeID string, year int, amount decimal.Decimal) error {
	return f.deductFn(ctx, tx, userID, leaveTypeID, year, amount)
}
func (f *fakeBalanceService) AccrueMonthly(ctx context.Context, now time.Time) (balance.BatchResult, error) {
	return balance.BatchResult{}, nil
}
func (f *fakeBalanceService) CarryOverYearEnd(ctx context.Context, fromYear int) (balance.BatchResult, error) {
	return balance.BatchResult{}, nil
}
func (f *fakeBalanceService) SetApprovedDaysSource(src balance.ApprovedDaysSource) {}

type fakeTypeService struct {
	lt leavetype.LeaveType
}

func (f *fakeTypeService) Create(ctx context.Context, req leavetype.CreateLeaveTypeRequest) (leavetype.LeaveTypeResponse, error) {
	return leavetype.LeaveTypeResponse{}, nil
}
func (f *fakeTypeService) GetAll(ctx context.Context) ([]leavetype.LeaveTypeResponse, error) {
	return nil, nil
}
func (f *fakeTypeService) ListAll(ctx context.Context) ([]leavetype.LeaveType, error) {
	return []leavetype.LeaveType{f.lt}, nil
}
func (f *fakeTypeService) GetByID(ctx context.Context, id string) (*leavetype.LeaveType, error) {
	return &f.lt, nil
}
func (f *fakeTypeService) SeedDefaults(ctx context.Context) error { return nil }

type fakeHolidayService struct {
	set businessday.HolidaySet
}

func (f *fakeHolidayService) Between(ctx context.Context, start, end time.Time) (businessday.HolidaySet, error) {
	return f.set, nil
}
func (f *fakeHolidayService) Upcoming(ctx context.Context) ([]holiday.PublicHolidayResponse, error) {
	return nil, nil
}
func (f *fakeHolidayService) SeedDefaults(ctx context.Context, year int) error { return nil }

type fakeCounter struct{ next int64 }

func (f *fakeCounter) GetNextValue(ctx context.Context, scope, counterType string) (int64, error) {
	f.next++
	return f.next, nil
}

type fakeOutbox struct {
	created []kafka.OutboxEvent
}

func (f *fakeOutbox) WithTx(tx *sql.Tx) kafka.OutboxRepository { return f }
func (f *fakeOutbox) Create(ctx context.Context, event kafka.OutboxEvent) error {
	f.created = append(f.created, event)
	return nil
}
func (f *fakeOutbox) ListPending(ctx context.Context, limit int) ([]kafka.OutboxEvent, error) {
	return nil, nil
}
func (f *fakeOutbox) MarkSent(ctx context.Context, id string) error               { return nil }
func (f *fakeOutbox) MarkFailed(ctx context.Context, id string, reason string) error { return nil }

type fakeUsers struct{}

func (fakeUsers) GetUserEmail(ctx context.Context, userID string) (string, error)    { return "", nil }
func (fakeUsers) GetUserIDByEmail(ctx context.Context, email string) (string, error) { return "", nil }
func (fakeUsers) GetUserFullName(ctx context.Context, userID string) (string, error) {
	return "Jordan Doe", nil
}
func (fakeUsers) GetUserDepartment(ctx context.Context, userID string) (string, error) {
	return "", nil
}
func (fakeUsers) GetUserRole(ctx context.Context, userID string) (string, error) { return "", nil }
func (fakeUsers) GetUsersByRole(ctx context.Context, role string) ([]string, error) {
	return nil, nil
}

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func richBalanceRow(remaining int64) *balance.BalanceRow {
	row := &balance.BalanceRow{}
	row.RemainingDays = decimal.NewFromInt(remaining)
	return row
}

func TestApply(t *testing.T) {
	userID := uuid.New()
	annual := leavetype.LeaveType{ID: uuid.New(), Name: "Annual Leave", DefaultAllocation: decimal.NewFromInt(20)}

	newService := func(db *sql.DB, repo Repository, balances balance.Service, outbox kafka.OutboxRepository) Service {
		return NewService(db, repo, balances, &fakeTypeService{lt: annual}, &fakeHolidayService{},
			&fakeCounter{}, outbox, fakeUsers{})
	}

	t.Run("success creates a pending request with its event", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectCommit()

		var created *LeaveRequest
		repo := &fakeLeaveRepo{
			hasPendingFn: func(ctx context.Context, uid string) (bool, error) { return false, nil },
			createFn: func(ctx context.Context, lr *LeaveRequest) error {
				created = lr
				return nil
			},
		}
		balances := &fakeBalanceService{
			getFn: func(ctx context.Context, uid, ltid string, year int) (*balance.BalanceRow, error) {
				return richBalanceRow(20), nil
			},
		}
		outbox := &fakeOutbox{}
		svc := newService(db, repo, balances, outbox)

		resp, err := svc.Apply(context.Background(), userID.String(), ApplyLeaveRequest{
			LeaveTypeID: annual.ID.String(),
			StartDate:   "2026-03-02", // Monday
			EndDate:     "2026-03-06", // Friday
			Reason:      "family visit",
		})

		assert.NoError(t, err)
		assert.NotNil(t, created)
		assert.Equal(t, StatusPending, created.Status)
		assert.Equal(t, "LR-000001", created.Reference)
		assert.Equal(t, StatusPending, resp.Status)
		assert.Equal(t, "5", resp.BusinessDays)
		assert.Len(t, outbox.created, 1)
		assert.Equal(t, "leave_request_submitted", outbox.created[0].EventType)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("negative a pending request blocks a new one", func(t *testing.T) {
		repo := &fakeLeaveRepo{
			hasPendingFn: func(ctx context.Context, uid string) (bool, error) { return true, nil },
		}
		svc := newService(nil, repo, &fakeBalanceService{}, &fakeOutbox{})

		_, err := svc.Apply(context.Background(), userID.String(), ApplyLeaveRequest{
			LeaveTypeID: annual.ID.String(),
			StartDate:   "2026-03-02",
			EndDate:     "2026-03-06",
		})

		assert.ErrorIs(t, err, leaveerrors.ErrPendingRequestExists)
	})

	t.Run("negative start after end", func(t *testing.T) {
		svc := newService(nil, &fakeLeaveRepo{}, &fakeBalanceService{}, &fakeOutbox{})

		_, err := svc.Apply(context.Background(), userID.String(), ApplyLeaveRequest{
			LeaveTypeID: annual.ID.String(),
			StartDate:   "2026-03-06",
			EndDate:     "2026-03-02",
		})

		assert.ErrorIs(t, err, businessday.ErrInvalidRange)
	})

	t.Run("negative weekend-only range has no business days", func(t *testing.T) {
		repo := &fakeLeaveRepo{
			hasPendingFn: func(ctx context.Context, uid string) (bool, error) { return false, nil },
		}
		svc := newService(nil, repo, &fakeBalanceService{}, &fakeOutbox{})

		_, err := svc.Apply(context.Background(), userID.String(), ApplyLeaveRequest{
			LeaveTypeID: annual.ID.String(),
			StartDate:   "2026-03-07", // Saturday
			EndDate:     "2026-03-08", // Sunday
		})

		assert.ErrorIs(t, err, leaveerrors.ErrNoBusinessDays)
	})

	t.Run("negative insufficient balance at submission", func(t *testing.T) {
		repo := &fakeLeaveRepo{
			hasPendingFn: func(ctx context.Context, uid string) (bool, error) { return false, nil },
		}
		balances := &fakeBalanceService{
			getFn: func(ctx context.Context, uid, ltid string, year int) (*balance.BalanceRow, error) {
				return richBalanceRow(2), nil
			},
		}
		svc := newService(nil, repo, balances, &fakeOutbox{})

		_, err := svc.Apply(context.Background(), userID.String(), ApplyLeaveRequest{
			LeaveTypeID: annual.ID.String(),
			StartDate:   "2026-03-02",
			EndDate:     "2026-03-06",
		})

		assert.ErrorIs(t, err, balanceerrors.ErrInsufficientBalance)
	})
}

func TestDecide(t *testing.T) {
	userID := uuid.New()
	typeID := uuid.New()
	requestID := uuid.New()

	pendingRow := func() *RequestRow {
		return &RequestRow{
			LeaveRequest: LeaveRequest{
				ID:          requestID,
				Reference:   "LR-000042",
				UserID:      userID,
				LeaveTypeID: typeID,
				StartDate:   time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC),
				EndDate:     time.Date(2026, time.March, 6, 0, 0, 0, 0, time.UTC),
				Status:      StatusPending,
				CreatedAt:   time.Now(),
			},
			LeaveTypeName: "Annual Leave",
		}
	}

	newService := func(db *sql.DB, repo Repository, balances balance.Service, outbox kafka.OutboxRepository) Service {
		return NewService(db, repo, balances, &fakeTypeService{}, &fakeHolidayService{},
			&fakeCounter{}, outbox, fakeUsers{})
	}

	t.Run("success approve deducts the recomputed day count", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectCommit()

		var deducted decimal.Decimal
		var decidedStatus string
		repo := &fakeLeaveRepo{
			findByIDLockFn: func(ctx context.Context, id string) (*RequestRow, error) {
				return pendingRow(), nil
			},
			updateFn: func(ctx context.Context, id, status, comment string) error {
				decidedStatus = status
				return nil
			},
		}
		balances := &fakeBalanceService{
			deductFn: func(ctx context.Context, tx *sql.Tx, uid, ltid string, year int, amount decimal.Decimal) error {
				deducted = amount
				assert.Equal(t, 2026, year)
				return nil
			},
		}
		outbox := &fakeOutbox{}
		svc := newService(db, repo, balances, outbox)

		resp, err := svc.Approve(context.Background(), requestID.String(), DecisionRequest{Comment: "enjoy"})

		assert.NoError(t, err)
		assert.True(t, deducted.Equal(decimal.NewFromInt(5)))
		assert.Equal(t, StatusApproved, decidedStatus)
		assert.Equal(t, StatusApproved, resp.Status)
		assert.Equal(t, "enjoy", resp.ApproverComment)
		assert.Len(t, outbox.created, 1)
		assert.Equal(t, "leave_request_approved", outbox.created[0].EventType)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("negative approving a decided request", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		row := pendingRow()
		row.Status = StatusApproved
		repo := &fakeLeaveRepo{
			findByIDLockFn: func(ctx context.Context, id string) (*RequestRow, error) {
				return row, nil
			},
		}
		svc := newService(db, repo, &fakeBalanceService{}, &fakeOutbox{})

		_, err := svc.Approve(context.Background(), requestID.String(), DecisionRequest{})

		assert.ErrorIs(t, err, leaveerrors.ErrAlreadyDecided)
	})

	t.Run("negative insufficient balance leaves the request pending", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		repo := &fakeLeaveRepo{
			findByIDLockFn: func(ctx context.Context, id string) (*RequestRow, error) {
				return pendingRow(), nil
			},
			updateFn: func(ctx context.Context, id, status, comment string) error {
				t.Fatal("a request must stay pending when the deduction fails")
				return nil
			},
		}
		balances := &fakeBalanceService{
			deductFn: func(ctx context.Context, tx *sql.Tx, uid, ltid string, year int, amount decimal.Decimal) error {
				return balanceerrors.ErrInsufficientBalance
			},
		}
		svc := newService(db, repo, balances, &fakeOutbox{})

		_, err := svc.Approve(context.Background(), requestID.String(), DecisionRequest{})

		assert.ErrorIs(t, err, balanceerrors.ErrInsufficientBalance)
	})

	t.Run("negative unknown request id", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		repo := &fakeLeaveRepo{
			findByIDLockFn: func(ctx context.Context, id string) (*RequestRow, error) {
				return nil, sql.ErrNoRows
			},
		}
		svc := newService(db, repo, &fakeBalanceService{}, &fakeOutbox{})

		_, err := svc.Approve(context.Background(), requestID.String(), DecisionRequest{})

		assert.ErrorIs(t, err, leaveerrors.ErrLeaveRequestNotFound)
	})

	t.Run("success reject touches no balance", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectCommit()

		var decidedStatus string
		repo := &fakeLeaveRepo{
			findByIDLockFn: func(ctx context.Context, id string) (*RequestRow, error) {
				return pendingRow(), nil
			},
			updateFn: func(ctx context.Context, id, status, comment string) error {
				decidedStatus = status
				return nil
			},
		}
		balances := &fakeBalanceService{
			deductFn: func(ctx context.Context, tx *sql.Tx, uid, ltid string, year int, amount decimal.Decimal) error {
				t.Fatal("reject must not touch the balance")
				return nil
			},
		}
		outbox := &fakeOutbox{}
		svc := newService(db, repo, balances, outbox)

		resp, err := svc.Reject(context.Background(), requestID.String(), DecisionRequest{Comment: "coverage gap"})

		assert.NoError(t, err)
		assert.Equal(t, StatusRejected, decidedStatus)
		assert.Equal(t, StatusRejected, resp.Status)
		assert.Len(t, outbox.created, 1)
		assert.Equal(t, "leave_request_rejected", outbox.created[0].EventType)
	})
}

func TestTeamOnLeave(t *testing.T) {
	from := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 7)

	t.Run("success lists approved overlaps with names", func(t *testing.T) {
		row := RequestRow{
			LeaveRequest: LeaveRequest{
				ID:        uuid.New(),
				UserID:    uuid.New(),
				StartDate: from,
				EndDate:   from.AddDate(0, 0, 2),
				Status:    StatusApproved,
			},
			LeaveTypeName: "Annual Leave",
		}
		repo := &fakeLeaveRepo{
			overlappingFn: func(ctx context.Context, f, t time.Time) ([]RequestRow, error) {
				return []RequestRow{row}, nil
			},
		}
		svc := NewService(nil, repo, &fakeBalanceService{}, &fakeTypeService{}, &fakeHolidayService{},
			&fakeCounter{}, &fakeOutbox{}, fakeUsers{})

		entries, err := svc.TeamOnLeave(context.Background(), from, to)

		assert.NoError(t, err)
		assert.Len(t, entries, 1)
		assert.Equal(t, "Jordan Doe", entries[0].FullName)
		assert.Equal(t, "Annual Leave", entries[0].LeaveType)
	})

	t.Run("negative inverted window", func(t *testing.T) {
		svc := NewService(nil, &fakeLeaveRepo{}, &fakeBalanceService{}, &fakeTypeService{}, &fakeHolidayService{},
			&fakeCounter{}, &fakeOutbox{}, fakeUsers{})

		_, err := svc.TeamOnLeave(context.Background(), to, from)

		assert.ErrorIs(t, err, businessday.ErrInvalidRange)
	})
}
