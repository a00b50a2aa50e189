package balance

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	balanceerrors "github.com/Christabll/IST-LeaveManagementService/internal/balance/errors"
	"github.com/Christabll/IST-LeaveManagementService/internal/leavetype"
)

type fakeRepo struct {
	insertFn       func(ctx context.Context, b *LeaveBalance) error
	updateFn       func(ctx context.Context, b *LeaveBalance) error
	findUserYearFn func(ctx context.Context, userID string, year int) ([]BalanceRow, error)
	findOneFn      func(ctx context.Context, userID, leaveTypeID string, year int) (*BalanceRow, error)
	findOneLockFn  func(ctx context.Context, userID, leaveTypeID string, year int) (*BalanceRow, error)
	findYearFn     func(ctx context.Context, year int) ([]BalanceRow, error)
	countFn        func(ctx context.Context, userID string, year int) (int64, error)
}

func (f *fakeRepo) WithTx(tx *sql.Tx) Repository { return f }
func (f *fakeRepo) Insert(ctx context.Context, b *LeaveBalance) error {
	return f.insertFn(ctx, b)
}
func (f *fakeRepo) Update(ctx context.Context, b *LeaveBalance) error {
	return f.updateFn(ctx, b)
}
func (f *fakeRepo) FindByUserAndYear(ctx context.Context, userID string, year int) ([]BalanceRow, error) {
	return f.findUserYearFn(ctx, userID, year)
}
func (f *fakeRepo) FindByUserTypeYear(ctx context.Context, userID, leaveTypeID string, year int) (*BalanceRow, error) {
	return f.findOneFn(ctx, userID, leaveTypeID, year)
}
func (f *fakeRepo) FindByUserTypeYearForUpdate(ctx context.Context, userID, leaveTypeID string, year int) (*BalanceRow, error) {
	return f.findOneLockFn(ctx, userID, leaveTypeID, year)
}
func (f *fakeRepo) FindByYear(ctx context.Context, year int) ([]BalanceRow, error) {
	return f.findYearFn(ctx, year)
}
func (f *fakeRepo) CountByUserAndYear(ctx context.Context, userID string, year int) (int64, error) {
	return f.countFn(ctx, userID, year)
}

type fakeLeaveTypeService struct {
	types []leavetype.LeaveType
}

func (f *fakeLeaveTypeService) Create(ctx context.Context, req leavetype.CreateLeaveTypeRequest) (leavetype.LeaveTypeResponse, error) {
	return leavetype.LeaveTypeResponse{}, nil
}
func (f *fakeLeaveTypeService) GetAll(ctx context.Context) ([]leavetype.LeaveTypeResponse, error) {
	return nil, nil
}
func (f *fakeLeaveTypeService) ListAll(ctx context.Context) ([]leavetype.LeaveType, error) {
	return f.types, nil
}
func (f *fakeLeaveTypeService) GetByID(ctx context.Context, id string) (*leavetype.LeaveType, error) {
	for i := range f.types {
		if f.types[i].ID.String() == id {
			return &f.types[i], nil
		}
	}
	return nil, sql.ErrNoRows
}
func (f *fakeLeaveTypeService) SeedDefaults(ctx context.Context) error { return nil }

type fakeDirectory struct {
	byRole map[string][]string
}

func (f *fakeDirectory) GetUserEmail(ctx context.Context, userID string) (string, error) {
	return "", nil
}
func (f *fakeDirectory) GetUserIDByEmail(ctx context.Context, email string) (string, error) {
	return "", nil
}
func (f *fakeDirectory) GetUserFullName(ctx context.Context, userID string) (string, error) {
	return "", nil
}
func (f *fakeDirectory) GetUserDepartment(ctx context.Context, userID string) (string, error) {
	return "", nil
}
func (f *fakeDirectory) GetUserRole(ctx context.Context, userID string) (string, error) {
	return "", nil
}
func (f *fakeDirectory) GetUsersByRole(ctx context.Context, role string) ([]string, error) {
	return f.byRole[role], nil
}

type fakeApprovedDays struct {
	days decimal.Decimal
	err  error
}

func (f *fakeApprovedDays) ApprovedDays(ctx context.Context, userID, leaveTypeID string, year int) (decimal.Decimal, error) {
	return f.days, f.err
}

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func testRow(userID, typeID uuid.UUID, year int, def, carry, used float64) BalanceRow {
	row := BalanceRow{
		LeaveBalance: LeaveBalance{
			ID:                uuid.New(),
			UserID:            userID,
			LeaveTypeID:       typeID,
			Year:              year,
			DefaultAllocation: decimal.NewFromFloat(def),
			CarryOver:         decimal.NewFromFloat(carry),
			UsedDays:          decimal.NewFromFloat(used),
		},
		LeaveTypeName:   "Annual Leave",
		AccrualEligible: true,
	}
	row.Recompute()
	return row
}

func TestInitializeForUser(t *testing.T) {
	userID := uuid.New()
	annual := leavetype.LeaveType{ID: uuid.New(), Name: "Annual Leave", DefaultAllocation: decimal.NewFromInt(20), AccrualEligible: true}
	sick := leavetype.LeaveType{ID: uuid.New(), Name: "Sick Leave", DefaultAllocation: decimal.NewFromInt(10)}

	t.Run("success creates one row per catalog type", func(t *testing.T) {
		var inserted []LeaveBalance
		repo := &fakeRepo{
			findOneFn: func(ctx context.Context, uid, ltid string, year int) (*BalanceRow, error) {
				return nil, sql.ErrNoRows
			},
			insertFn: func(ctx context.Context, b *LeaveBalance) error {
				inserted = append(inserted, *b)
				return nil
			},
		}
		svc := NewService(nil, repo, &fakeLeaveTypeService{types: []leavetype.LeaveType{annual, sick}}, &fakeDirectory{}, false)

		err := svc.InitializeForUser(context.Background(), userID.String(), 2026)

		assert.NoError(t, err)
		assert.Len(t, inserted, 2)
		assert.True(t, inserted[0].DefaultAllocation.Equal(decimal.NewFromInt(20)))
		assert.True(t, inserted[0].RemainingDays.Equal(decimal.NewFromInt(20)))
		assert.True(t, inserted[0].UsedDays.IsZero())
		assert.False(t, inserted[0].ManuallyAdjusted)
	})

	t.Run("negative repeated call inserts nothing", func(t *testing.T) {
		existing := testRow(userID, annual.ID, 2026, 20, 0, 0)
		inserts := 0
		repo := &fakeRepo{
			findOneFn: func(ctx context.Context, uid, ltid string, year int) (*BalanceRow, error) {
				return &existing, nil
			},
			insertFn: func(ctx context.Context, b *LeaveBalance) error {
				inserts++
				return nil
			},
		}
		svc := NewService(nil, repo, &fakeLeaveTypeService{types: []leavetype.LeaveType{annual}}, &fakeDirectory{}, false)

		err := svc.InitializeForUser(context.Background(), userID.String(), 2026)

		assert.NoError(t, err)
		assert.Equal(t, 0, inserts)
	})

	t.Run("negative invalid user id", func(t *testing.T) {
		svc := NewService(nil, &fakeRepo{}, &fakeLeaveTypeService{}, &fakeDirectory{}, false)

		err := svc.InitializeForUser(context.Background(), "not-a-uuid", 2026)

		assert.ErrorIs(t, err, balanceerrors.ErrInvalidUserID)
	})
}

func TestInitializeAllUsers(t *testing.T) {
	annual := leavetype.LeaveType{ID: uuid.New(), Name: "Annual Leave", DefaultAllocation: decimal.NewFromInt(20)}
	okUser := uuid.New().String()

	dir := &fakeDirectory{byRole: map[string][]string{
		"STAFF":   {okUser, "broken-id"},
		"MANAGER": {okUser}, // duplicate across roles is counted once
	}}
	repo := &fakeRepo{
		findOneFn: func(ctx context.Context, uid, ltid string, year int) (*BalanceRow, error) {
			return nil, sql.ErrNoRows
		},
		insertFn: func(ctx context.Context, b *LeaveBalance) error { return nil },
	}
	svc := NewService(nil, repo, &fakeLeaveTypeService{types: []leavetype.LeaveType{annual}}, dir, false)

	result, err := svc.InitializeAllUsers(context.Background(), 2026)

	assert.NoError(t, err)
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
}

func TestGetBalances(t *testing.T) {
	userID := uuid.New()
	typeID := uuid.New()

	t.Run("success fresh ledger reads twenty days", func(t *testing.T) {
		row := testRow(userID, typeID, 2026, 20, 0, 0)
		repo := &fakeRepo{
			countFn: func(ctx context.Context, uid string, year int) (int64, error) { return 1, nil },
			findUserYearFn: func(ctx context.Context, uid string, year int) ([]BalanceRow, error) {
				return []BalanceRow{row}, nil
			},
		}
		svc := NewService(nil, repo, &fakeLeaveTypeService{}, &fakeDirectory{}, false)
		svc.SetApprovedDaysSource(&fakeApprovedDays{days: decimal.Zero})

		resp, err := svc.GetBalances(context.Background(), userID.String(), 2026)

		assert.NoError(t, err)
		assert.Len(t, resp, 1)
		assert.Equal(t, "20", resp[0].RemainingDays)
		assert.Equal(t, "0", resp[0].UsedDays)
	})

	t.Run("success reconciles used days from approved requests", func(t *testing.T) {
		row := testRow(userID, typeID, 2026, 20, 0, 2)
		var updated *LeaveBalance
		repo := &fakeRepo{
			countFn: func(ctx context.Context, uid string, year int) (int64, error) { return 1, nil },
			findUserYearFn: func(ctx context.Context, uid string, year int) ([]BalanceRow, error) {
				return []BalanceRow{row}, nil
			},
			updateFn: func(ctx context.Context, b *LeaveBalance) error {
				updated = b
				return nil
			},
		}
		svc := NewService(nil, repo, &fakeLeaveTypeService{}, &fakeDirectory{}, false)
		svc.SetApprovedDaysSource(&fakeApprovedDays{days: decimal.NewFromInt(4)})

		resp, err := svc.GetBalances(context.Background(), userID.String(), 2026)

		assert.NoError(t, err)
		assert.NotNil(t, updated)
		assert.Equal(t, "4", resp[0].UsedDays)
		assert.Equal(t, "16", resp[0].RemainingDays)
	})

	t.Run("manually adjusted rows are not reconciled", func(t *testing.T) {
		row := testRow(userID, typeID, 2026, 20, 0, 2)
		row.ManuallyAdjusted = true
		repo := &fakeRepo{
			countFn: func(ctx context.Context, uid string, year int) (int64, error) { return 1, nil },
			findUserYearFn: func(ctx context.Context, uid string, year int) ([]BalanceRow, error) {
				return []BalanceRow{row}, nil
			},
			updateFn: func(ctx context.Context, b *LeaveBalance) error {
				t.Fatal("manually adjusted row must not be updated")
				return nil
			},
		}
		svc := NewService(nil, repo, &fakeLeaveTypeService{}, &fakeDirectory{}, false)
		svc.SetApprovedDaysSource(&fakeApprovedDays{days: decimal.NewFromInt(9)})

		resp, err := svc.GetBalances(context.Background(), userID.String(), 2026)

		assert.NoError(t, err)
		assert.Equal(t, "2", resp[0].UsedDays)
	})
}

func TestGet(t *testing.T) {
	userID := uuid.New()
	annual := leavetype.LeaveType{ID: uuid.New(), Name: "Annual Leave", DefaultAllocation: decimal.NewFromInt(20), AccrualEligible: true}

	t.Run("success missing ledger is provisioned on read", func(t *testing.T) {
		var provisioned *BalanceRow
		repo := &fakeRepo{
			findOneFn: func(ctx context.Context, uid, ltid string, year int) (*BalanceRow, error) {
				if provisioned != nil && provisioned.LeaveTypeID.String() == ltid {
					return provisioned, nil
				}
				return nil, sql.ErrNoRows
			},
			insertFn: func(ctx context.Context, b *LeaveBalance) error {
				provisioned = &BalanceRow{LeaveBalance: *b, LeaveTypeName: "Annual Leave", AccrualEligible: true}
				return nil
			},
		}
		svc := NewService(nil, repo, &fakeLeaveTypeService{types: []leavetype.LeaveType{annual}}, &fakeDirectory{}, false)

		row, err := svc.Get(context.Background(), userID.String(), annual.ID.String(), 2026)

		assert.NoError(t, err)
		assert.NotNil(t, provisioned)
		assert.True(t, row.RemainingDays.Equal(decimal.NewFromInt(20)))
	})

	t.Run("negative type outside the catalog stays not found", func(t *testing.T) {
		repo := &fakeRepo{
			findOneFn: func(ctx context.Context, uid, ltid string, year int) (*BalanceRow, error) {
				return nil, sql.ErrNoRows
			},
			insertFn: func(ctx context.Context, b *LeaveBalance) error { return nil },
		}
		svc := NewService(nil, repo, &fakeLeaveTypeService{types: []leavetype.LeaveType{annual}}, &fakeDirectory{}, false)

		_, err := svc.Get(context.Background(), userID.String(), uuid.NewString(), 2026)

		assert.ErrorIs(t, err, balanceerrors.ErrBalanceNotFound)
	})
}

func TestAdjust(t *testing.T) {
	userID := uuid.New()
	typeID := uuid.New()

	t.Run("success sets field and marks manual", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectCommit()

		row := testRow(userID, typeID, 2026, 20, 0, 5)
		var updated *LeaveBalance
		repo := &fakeRepo{
			findOneLockFn: func(ctx context.Context, uid, ltid string, year int) (*BalanceRow, error) {
				return &row, nil
			},
			updateFn: func(ctx context.Context, b *LeaveBalance) error {
				updated = b
				return nil
			},
		}
		svc := NewService(db, repo, &fakeLeaveTypeService{}, &fakeDirectory{}, false)

		used := 3.0
		resp, err := svc.Adjust(context.Background(), userID.String(), typeID.String(), 2026, AdjustBalanceRequest{UsedDays: &used})

		assert.NoError(t, err)
		assert.NotNil(t, updated)
		assert.True(t, updated.ManuallyAdjusted)
		assert.Equal(t, "3", resp.UsedDays)
		assert.Equal(t, "17", resp.RemainingDays)
		assert.True(t, resp.ManuallyAdjusted)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("negative zero or multiple fields rejected", func(t *testing.T) {
		svc := NewService(nil, &fakeRepo{}, &fakeLeaveTypeService{}, &fakeDirectory{}, false)

		_, err := svc.Adjust(context.Background(), userID.String(), typeID.String(), 2026, AdjustBalanceRequest{})
		assert.ErrorIs(t, err, balanceerrors.ErrAdjustFieldRequired)

		a, b := 1.0, 2.0
		_, err = svc.Adjust(context.Background(), userID.String(), typeID.String(), 2026, AdjustBalanceRequest{UsedDays: &a, CarryOver: &b})
		assert.ErrorIs(t, err, balanceerrors.ErrAdjustFieldRequired)
	})

	t.Run("negative amount rejected", func(t *testing.T) {
		svc := NewService(nil, &fakeRepo{}, &fakeLeaveTypeService{}, &fakeDirectory{}, false)

		bad := -1.0
		_, err := svc.Adjust(context.Background(), userID.String(), typeID.String(), 2026, AdjustBalanceRequest{CarryOver: &bad})

		assert.ErrorIs(t, err, balanceerrors.ErrNegativeDays)
	})
}

func TestDeductTx(t *testing.T) {
	userID := uuid.New()
	typeID := uuid.New()

	t.Run("success moves days from remaining to used", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectRollback()
		tx, err := db.Begin()
		assert.NoError(t, err)
		defer tx.Rollback()

		row := testRow(userID, typeID, 2026, 20, 0, 5)
		var updated *LeaveBalance
		repo := &fakeRepo{
			findOneLockFn: func(ctx context.Context, uid, ltid string, year int) (*BalanceRow, error) {
				return &row, nil
			},
			updateFn: func(ctx context.Context, b *LeaveBalance) error {
				updated = b
				return nil
			},
		}
		svc := NewService(db, repo, &fakeLeaveTypeService{}, &fakeDirectory{}, false)

		err = svc.DeductTx(context.Background(), tx, userID.String(), typeID.String(), 2026, decimal.NewFromInt(3))

		assert.NoError(t, err)
		assert.True(t, updated.UsedDays.Equal(decimal.NewFromInt(8)))
		assert.True(t, updated.RemainingDays.Equal(decimal.NewFromInt(12)))
	})

	t.Run("negative insufficient balance", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectRollback()
		tx, err := db.Begin()
		assert.NoError(t, err)
		defer tx.Rollback()

		row := testRow(userID, typeID, 2026, 20, 0, 18)
		repo := &fakeRepo{
			findOneLockFn: func(ctx context.Context, uid, ltid string, year int) (*BalanceRow, error) {
				return &row, nil
			},
			updateFn: func(ctx context.Context, b *LeaveBalance) error {
				t.Fatal("insufficient balance must not update the row")
				return nil
			},
		}
		svc := NewService(db, repo, &fakeLeaveTypeService{}, &fakeDirectory{}, false)

		err = svc.DeductTx(context.Background(), tx, userID.String(), typeID.String(), 2026, decimal.NewFromInt(3))

		assert.ErrorIs(t, err, balanceerrors.ErrInsufficientBalance)
	})
}

func TestAccrueMonthly(t *testing.T) {
	userID := uuid.New()
	typeID := uuid.New()
	now := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)

	run := func(t *testing.T, rows []BalanceRow, skipManual bool) (BatchResult, map[uuid.UUID]decimal.Decimal) {
		t.Helper()
		db, mock := newMockDB(t)
		for range rows {
			mock.ExpectBegin()
			mock.ExpectCommit()
		}

		remaining := map[uuid.UUID]decimal.Decimal{}
		repo := &fakeRepo{
			findYearFn: func(ctx context.Context, year int) ([]BalanceRow, error) {
				return rows, nil
			},
			findOneLockFn: func(ctx context.Context, uid, ltid string, year int) (*BalanceRow, error) {
				for i := range rows {
					if rows[i].UserID.String() == uid && rows[i].LeaveTypeID.String() == ltid {
						copied := rows[i]
						return &copied, nil
					}
				}
				return nil, sql.ErrNoRows
			},
			updateFn: func(ctx context.Context, b *LeaveBalance) error {
				remaining[b.ID] = b.RemainingDays
				return nil
			},
		}
		svc := NewService(db, repo, &fakeLeaveTypeService{}, &fakeDirectory{}, skipManual)

		result, err := svc.AccrueMonthly(context.Background(), now)
		assert.NoError(t, err)
		return result, remaining
	}

	t.Run("success adds the monthly increment", func(t *testing.T) {
		row := testRow(userID, typeID, 2026, 20, 0, 10)
		assert.True(t, row.RemainingDays.Equal(decimal.NewFromInt(10)))

		result, remaining := run(t, []BalanceRow{row}, false)

		assert.Equal(t, 1, result.Succeeded)
		assert.True(t, remaining[row.ID].Equal(decimal.NewFromFloat(11.66)))
	})

	t.Run("accrual is capped at the default allocation", func(t *testing.T) {
		row := testRow(userID, typeID, 2026, 20, 0, 0.5)
		// remaining 19.5, a full increment would overshoot

		result, remaining := run(t, []BalanceRow{row}, false)

		assert.Equal(t, 1, result.Succeeded)
		assert.True(t, remaining[row.ID].Equal(decimal.NewFromInt(20)))
	})

	t.Run("full balances are left unchanged", func(t *testing.T) {
		row := testRow(userID, typeID, 2026, 20, 0, 0)

		result, remaining := run(t, []BalanceRow{row}, false)

		assert.Equal(t, 1, result.Succeeded)
		_, touched := remaining[row.ID]
		assert.False(t, touched)
	})

	t.Run("ineligible types are skipped", func(t *testing.T) {
		row := testRow(userID, typeID, 2026, 10, 0, 4)
		row.AccrualEligible = false

		result, remaining := run(t, []BalanceRow{row}, false)

		assert.Equal(t, 0, result.Processed)
		assert.Empty(t, remaining)
	})

	t.Run("manually adjusted rows skipped when configured", func(t *testing.T) {
		row := testRow(userID, typeID, 2026, 20, 0, 10)
		row.ManuallyAdjusted = true

		db, mock := newMockDB(t)
		_ = mock
		repo := &fakeRepo{
			findYearFn: func(ctx context.Context, year int) ([]BalanceRow, error) {
				return []BalanceRow{row}, nil
			},
		}
		svc := NewService(db, repo, &fakeLeaveTypeService{}, &fakeDirectory{}, true)

		result, err := svc.AccrueMonthly(context.Background(), now)

		assert.NoError(t, err)
		assert.Equal(t, 0, result.Processed)
	})
}

func TestCarryOverYearEnd(t *testing.T) {
	userID := uuid.New()
	annual := leavetype.LeaveType{ID: uuid.New(), Name: "Annual Leave", DefaultAllocation: decimal.NewFromInt(20), AccrualEligible: true}

	t.Run("success carry is capped at five days", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectCommit()

		row := testRow(userID, annual.ID, 2026, 20, 0, 12) // remaining 8
		var inserted *LeaveBalance
		repo := &fakeRepo{
			findYearFn: func(ctx context.Context, year int) ([]BalanceRow, error) {
				return []BalanceRow{row}, nil
			},
			findOneLockFn: func(ctx context.Context, uid, ltid string, year int) (*BalanceRow, error) {
				return nil, sql.ErrNoRows
			},
			insertFn: func(ctx context.Context, b *LeaveBalance) error {
				inserted = b
				return nil
			},
		}
		svc := NewService(db, repo, &fakeLeaveTypeService{types: []leavetype.LeaveType{annual}}, &fakeDirectory{}, false)

		result, err := svc.CarryOverYearEnd(context.Background(), 2026)

		assert.NoError(t, err)
		assert.Equal(t, 1, result.Succeeded)
		assert.NotNil(t, inserted)
		assert.Equal(t, 2027, inserted.Year)
		assert.True(t, inserted.CarryOver.Equal(decimal.NewFromInt(5)))
		assert.True(t, inserted.RemainingDays.Equal(decimal.NewFromInt(25)))
	})

	t.Run("success small remainder carries in full", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectCommit()

		row := testRow(userID, annual.ID, 2026, 20, 0, 17) // remaining 3
		var inserted *LeaveBalance
		repo := &fakeRepo{
			findYearFn: func(ctx context.Context, year int) ([]BalanceRow, error) {
				return []BalanceRow{row}, nil
			},
			findOneLockFn: func(ctx context.Context, uid, ltid string, year int) (*BalanceRow, error) {
				return nil, sql.ErrNoRows
			},
			insertFn: func(ctx context.Context, b *LeaveBalance) error {
				inserted = b
				return nil
			},
		}
		svc := NewService(db, repo, &fakeLeaveTypeService{types: []leavetype.LeaveType{annual}}, &fakeDirectory{}, false)

		_, err := svc.CarryOverYearEnd(context.Background(), 2026)

		assert.NoError(t, err)
		assert.True(t, inserted.CarryOver.Equal(decimal.NewFromInt(3)))
	})

	t.Run("success existing next-year row is updated", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectCommit()

		row := testRow(userID, annual.ID, 2026, 20, 0, 10) // remaining 10, carry 5
		nextRow := testRow(userID, annual.ID, 2027, 20, 0, 0)
		var updated *LeaveBalance
		repo := &fakeRepo{
			findYearFn: func(ctx context.Context, year int) ([]BalanceRow, error) {
				return []BalanceRow{row}, nil
			},
			findOneLockFn: func(ctx context.Context, uid, ltid string, year int) (*BalanceRow, error) {
				return &nextRow, nil
			},
			updateFn: func(ctx context.Context, b *LeaveBalance) error {
				updated = b
				return nil
			},
		}
		svc := NewService(db, repo, &fakeLeaveTypeService{types: []leavetype.LeaveType{annual}}, &fakeDirectory{}, false)

		_, err := svc.CarryOverYearEnd(context.Background(), 2026)

		assert.NoError(t, err)
		assert.NotNil(t, updated)
		assert.True(t, updated.CarryOver.Equal(decimal.NewFromInt(5)))
		assert.True(t, updated.RemainingDays.Equal(decimal.NewFromInt(25)))
	})

	t.Run("ineligible types are skipped", func(t *testing.T) {
		db, _ := newMockDB(t)

		row := testRow(userID, uuid.New(), 2026, 10, 0, 2) // remaining 8
		row.LeaveTypeName = "Sick Leave"
		row.AccrualEligible = false
		repo := &fakeRepo{
			findYearFn: func(ctx context.Context, year int) ([]BalanceRow, error) {
				return []BalanceRow{row}, nil
			},
			insertFn: func(ctx context.Context, b *LeaveBalance) error {
				t.Fatal("an ineligible row must not carry over")
				return nil
			},
			updateFn: func(ctx context.Context, b *LeaveBalance) error {
				t.Fatal("an ineligible row must not carry over")
				return nil
			},
		}
		svc := NewService(db, repo, &fakeLeaveTypeService{}, &fakeDirectory{}, false)

		result, err := svc.CarryOverYearEnd(context.Background(), 2026)

		assert.NoError(t, err)
		assert.Equal(t, 0, result.Processed)
	})

	t.Run("negative one bad row does not stop the batch", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin() // first row fails inside its own tx
		mock.ExpectRollback()
		mock.ExpectBegin()
		mock.ExpectCommit()

		bad := testRow(userID, uuid.New(), 2026, 20, 0, 10)
		good := testRow(userID, annual.ID, 2026, 20, 0, 10)
		repo := &fakeRepo{
			findYearFn: func(ctx context.Context, year int) ([]BalanceRow, error) {
				return []BalanceRow{bad, good}, nil
			},
			findOneLockFn: func(ctx context.Context, uid, ltid string, year int) (*BalanceRow, error) {
				return nil, sql.ErrNoRows
			},
			insertFn: func(ctx context.Context, b *LeaveBalance) error { return nil },
		}
		svc := NewService(db, repo, &fakeLeaveTypeService{types: []leavetype.LeaveType{annual}}, &fakeDirectory{}, false)

		result, err := svc.CarryOverYearEnd(context.Background(), 2026)

		assert.NoError(t, err)
		assert.Equal(t, 2, result.Processed)
		assert.Equal(t, 1, result.Succeeded)
		assert.Equal(t, 1, result.Failed)
	})
}
