package middleware

import (
	"net/http"

	"github.com/Christabll/IST-LeaveManagementService/internal/bootstrap"

	"github.com/gin-gonic/gin"
)

// AuditTrail records every mutating request after it completes. Reads
// are skipped to keep the table focused on state changes.
func AuditTrail(auditor *bootstrap.AuditLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead {
			return
		}

		auditor.Record(c.Request.Context(), bootstrap.AuditLog{
			UserID:    c.GetString(ContextUserID),
			Method:    c.Request.Method,
			Path:      c.FullPath(),
			Status:    c.Writer.Status(),
			RequestID: c.GetString("request_id"),
		})
	}
}
