package balance

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

//go:generate mockgen -source=balance_repo.go -destination=mock/balance_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Insert(ctx context.Context, b *LeaveBalance) error
	Update(ctx context.Context, b *LeaveBalance) error
	FindByUserAndYear(ctx context.Context, userID string, year int) ([]BalanceRow, error)
	FindByUserTypeYear(ctx context.Context, userID, leaveTypeID string, year int) (*BalanceRow, error)
	// FindByUserTypeYearForUpdate locks the row until the surrounding
	// transaction ends. Callers must be inside WithTx.
	FindByUserTypeYearForUpdate(ctx context.Context, userID, leaveTypeID string, year int) (*BalanceRow, error)
	FindByYear(ctx context.Context, year int) ([]BalanceRow, error)
	CountByUserAndYear(ctx context.Context, userID string, year int) (int64, error)
}

type repository struct {
	db *sql.DB
	tx *sql.Tx
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *sql.Tx) Repository {
	return &repository{db: r.db, tx: tx}
}

const balanceColumns = `
	b.id::text,
	b.user_id::text,
	b.leave_type_id::text,
	b.year,
	b.default_allocation,
	b.carry_over,
	b.used_days,
	b.remaining_days,
	b.manually_adjusted,
	t.name,
	t.accrual_eligible
`

const balanceFromJoin = `
FROM leave_balances b
JOIN leave_types t ON t.id = b.leave_type_id
`

func (r *repository) Insert(ctx context.Context, b *LeaveBalance) error {
	query := `
INSERT INTO leave_balances (
	id, user_id, leave_type_id, year,
	default_allocation, carry_over, used_days, remaining_days, manually_adjusted
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`
	_, err := r.execer().ExecContext(ctx, query,
		b.ID, b.UserID, b.LeaveTypeID, b.Year,
		b.DefaultAllocation, b.CarryOver, b.UsedDays, b.RemainingDays, b.ManuallyAdjusted,
	)
	return err
}

func (r *repository) Update(ctx context.Context, b *LeaveBalance) error {
	query := `
UPDATE leave_balances
SET
	default_allocation = $2,
	carry_over = $3,
	used_days = $4,
	remaining_days = $5,
	manually_adjusted = $6,
	updated_at = NOW()
WHERE id = $1
`
	_, err := r.execer().ExecContext(ctx, query,
		b.ID, b.DefaultAllocation, b.CarryOver, b.UsedDays, b.RemainingDays, b.ManuallyAdjusted,
	)
	return err
}

func (r *repository) FindByUserAndYear(ctx context.Context, userID string, year int) ([]BalanceRow, error) {
	query := `SELECT` + balanceColumns + balanceFromJoin + `
WHERE b.user_id = $1 AND b.year = $2
ORDER BY t.name ASC
`
	return r.queryRows(ctx, query, userID, year)
}

func (r *repository) FindByUserTypeYear(ctx context.Context, userID, leaveTypeID string, year int) (*BalanceRow, error) {
	query := `SELECT` + balanceColumns + balanceFromJoin + `
WHERE b.user_id = $1 AND b.leave_type_id = $2 AND b.year = $3
`
	return r.queryRow(ctx, query, userID, leaveTypeID, year)
}

func (r *repository) FindByUserTypeYearForUpdate(ctx context.Context, userID, leaveTypeID string, year int) (*BalanceRow, error) {
	query := `SELECT` + balanceColumns + balanceFromJoin + `
WHERE b.user_id = $1 AND b.leave_type_id = $2 AND b.year = $3
FOR UPDATE OF b
`
	return r.queryRow(ctx, query, userID, leaveTypeID, year)
}

func (r *repository) FindByYear(ctx context.Context, year int) ([]BalanceRow, error) {
	query := `SELECT` + balanceColumns + balanceFromJoin + `
WHERE b.year = $1
ORDER BY b.user_id, t.name
`
	return r.queryRows(ctx, query, year)
}

func (r *repository) CountByUserAndYear(ctx context.Context, userID string, year int) (int64, error) {
	var count int64
	err := r.queryer().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM leave_balances WHERE user_id = $1 AND year = $2`,
		userID, year,
	).Scan(&count)
	return count, err
}

func (r *repository) queryRows(ctx context.Context, query string, args ...any) ([]BalanceRow, error) {
	rows, err := r.queryer().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []BalanceRow
	for rows.Next() {
		row, err := scanBalanceRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *row)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *repository) queryRow(ctx context.Context, query string, args ...any) (*BalanceRow, error) {
	rows, err := r.queryer().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, sql.ErrNoRows
	}

	return scanBalanceRow(rows)
}

func scanBalanceRow(rows *sql.Rows) (*BalanceRow, error) {
	var (
		row                     BalanceRow
		id, userID, leaveTypeID string
	)
	if err := rows.Scan(
		&id,
		&userID,
		&leaveTypeID,
		&row.Year,
		&row.DefaultAllocation,
		&row.CarryOver,
		&row.UsedDays,
		&row.RemainingDays,
		&row.ManuallyAdjusted,
		&row.LeaveTypeName,
		&row.AccrualEligible,
	); err != nil {
		return nil, err
	}

	var err error
	if row.ID, err = uuid.Parse(id); err != nil {
		return nil, err
	}
	if row.UserID, err = uuid.Parse(userID); err != nil {
		return nil, err
	}
	if row.LeaveTypeID, err = uuid.Parse(leaveTypeID); err != nil {
		return nil, err
	}

	return &row, nil
}

func (r *repository) execer() interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
} {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

func (r *repository) queryer() interface {
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
} {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}
