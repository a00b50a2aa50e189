package bootstrap

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AuditLog records who changed what through the HTTP surface.
type AuditLog struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID    string    `gorm:"size:64;index"`
	Method    string    `gorm:"size:10;not null"`
	Path      string    `gorm:"size:200;not null"`
	Status    int       `gorm:"not null"`
	RequestID string    `gorm:"size:64"`
	CreatedAt time.Time
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

type AuditLogger struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewAuditLogger(db *gorm.DB, logger ...*zap.Logger) *AuditLogger {
	l := zap.L().Named("bootstrap.audit")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("bootstrap.audit")
	}
	return &AuditLogger{db: db, logger: l}
}

// Record persists an audit row. Audit failures are logged and
// swallowed; auditing never breaks the request it describes.
func (a *AuditLogger) Record(ctx context.Context, entry AuditLog) {
	entry.ID = uuid.New()
	if err := a.db.WithContext(ctx).Create(&entry).Error; err != nil {
		a.logger.Error("write audit log failed",
			zap.String("method", entry.Method),
			zap.String("path", entry.Path),
			zap.Error(err),
		)
	}
}
