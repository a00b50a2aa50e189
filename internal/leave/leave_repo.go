package leave

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

//go:generate mockgen -source=leave_repo.go -destination=mock/leave_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Create(ctx context.Context, lr *LeaveRequest) error
	FindByID(ctx context.Context, id string) (*RequestRow, error)
	// FindByIDForUpdate locks the request row for the remainder of the
	// surrounding transaction. Callers must be inside WithTx.
	FindByIDForUpdate(ctx context.Context, id string) (*RequestRow, error)
	FindByUser(ctx context.Context, userID string) ([]RequestRow, error)
	FindByStatus(ctx context.Context, status string) ([]RequestRow, error)
	HasPendingForUser(ctx context.Context, userID string) (bool, error)
	UpdateDecision(ctx context.Context, id, status, comment string) error
	FindApprovedByUserTypeYear(ctx context.Context, userID, leaveTypeID string, year int) ([]RequestRow, error)
	FindApprovedOverlapping(ctx context.Context, from, to time.Time) ([]RequestRow, error)
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

const requestColumns = `
	lr.id::text,
	lr.reference,
	lr.user_id::text,
	lr.leave_type_id::text,
	lr.start_date,
	lr.end_date,
	lr.reason,
	lr.document_url,
	lr.status,
	lr.approver_comment,
	lr.created_at,
	t.name
`

const requestFromJoin = `
FROM leave_requests lr
JOIN leave_types t ON t.id = lr.leave_type_id
`

func (r *repository) Create(ctx context.Context, lr *LeaveRequest) error {
	query := `
INSERT INTO leave_requests (
	id, reference, user_id, leave_type_id,
	start_date, end_date, reason, document_url, status
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`
	_, err := r.execer().ExecContext(ctx, query,
		lr.ID, lr.Reference, lr.UserID, lr.LeaveTypeID,
		lr.StartDate, lr.EndDate, lr.Reason, lr.DocumentURL, lr.Status,
	)
	return err
}

func (r *repository) FindByID(ctx context.Context, id string) (*RequestRow, error) {
	query := `SELECT` + requestColumns + requestFromJoin + `
WHERE lr.id = $1
`
	return r.queryRow(ctx, query, id)
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id string) (*RequestRow, error) {
	query := `SELECT` + requestColumns + requestFromJoin + `
WHERE lr.id = $1
FOR UPDATE OF lr
`
	return r.queryRow(ctx, query, id)
}

func (r *repository) FindByUser(ctx context.Context, userID string) ([]RequestRow, error) {
	query := `SELECT` + requestColumns + requestFromJoin + `
WHERE lr.user_id = $1
ORDER BY lr.created_at DESC
`
	return r.queryRows(ctx, query, userID)
}

func (r *repository) FindByStatus(ctx context.Context, status string) ([]RequestRow, error) {
	query := `SELECT` + requestColumns + requestFromJoin + `
WHERE lr.status = $1
ORDER BY lr.created_at ASC
`
	return r.queryRows(ctx, query, status)
}

func (r *repository) HasPendingForUser(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := r.queryer().QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM leave_requests WHERE user_id = $1 AND status = $2)`,
		userID, StatusPending,
	).Scan(&exists)
	return exists, err
}

func (r *repository) UpdateDecision(ctx context.Context, id, status, comment string) error {
	query := `
UPDATE leave_requests
SET
	status = $2,
	approver_comment = $3,
	updated_at = NOW()
WHERE id = $1
`
	_, err := r.execer().ExecContext(ctx, query, id, status, comment)
	return err
}

func (r *repository) FindApprovedByUserTypeYear(ctx context.Context, userID, leaveTypeID string, year int) ([]RequestRow, error) {
	query := `SELECT` + requestColumns + requestFromJoin + `
WHERE lr.user_id = $1
	AND lr.leave_type_id = $2
	AND lr.status = $3
	AND EXTRACT(YEAR FROM lr.start_date) = $4
ORDER BY lr.start_date ASC
`
	return r.queryRows(ctx, query, userID, leaveTypeID, StatusApproved, year)
}

func (r *repository) FindApprovedOverlapping(ctx context.Context, from, to time.Time) ([]RequestRow, error) {
	query := `SELECT` + requestColumns + requestFromJoin + `
WHERE lr.status = $1
	AND lr.start_date <= $3
	AND lr.end_date >= $2
ORDER BY lr.start_date ASC
`
	return r.queryRows(ctx, query, StatusApproved, from, to)
}

func (r *repository) queryRows(ctx context.Context, query string, args ...any) ([]RequestRow, error) {
	rows, err := r.queryer().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []RequestRow
	for rows.Next() {
		row, err := scanRequestRow(rows)
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

func (r *repository) queryRow(ctx context.Context, query string, args ...any) (*RequestRow, error) {
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

	return scanRequestRow(rows)
}

func scanRequestRow(rows *sql.Rows) (*RequestRow, error) {
	var (
		row             RequestRow
		id, userID      string
		leaveTypeID     string
		reason          sql.NullString
		documentURL     sql.NullString
		approverComment sql.NullString
	)
	if err := rows.Scan(
		&id,
		&row.Reference,
		&userID,
		&leaveTypeID,
		&row.StartDate,
		&row.EndDate,
		&reason,
		&documentURL,
		&row.Status,
		&approverComment,
		&row.CreatedAt,
		&row.LeaveTypeName,
	); err != nil {
		return nil, err
	}

	row.Reason = reason.String
	row.DocumentURL = documentURL.String
	row.ApproverComment = approverComment.String

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
