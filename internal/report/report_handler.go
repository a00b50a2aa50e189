package report

import (
	"net/http"
	"time"

	"github.com/Christabll/IST-LeaveManagementService/internal/shared/apperror"
	"github.com/Christabll/IST-LeaveManagementService/internal/shared/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger ...*zap.Logger) *Handler {
	l := zap.L().Named("report.handler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("report.handler")
	}
	return &Handler{service: service, logger: l}
}

func (h *Handler) LeaveReport(c *gin.Context) {
	filters := Filters{
		Status:      c.Query("status"),
		LeaveTypeID: c.Query("leave_type_id"),
		Department:  c.Query("department"),
	}

	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.Error(c, http.StatusBadRequest, apperror.CodeInvalidInput, "from must use the YYYY-MM-DD format", nil)
			return
		}
		filters.From = parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.Error(c, http.StatusBadRequest, apperror.CodeInvalidInput, "to must use the YYYY-MM-DD format", nil)
			return
		}
		filters.To = parsed
	}

	entries, err := h.service.LeaveReport(c.Request.Context(), filters)
	if err != nil {
		httpErr := apperror.ToHTTP(err)
		h.logger.Warn("leave report failed",
			zap.Int("status", httpErr.Status),
			zap.String("code", httpErr.Code),
		)
		response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
		return
	}

	response.Success(c, http.StatusOK, entries, nil)
}
