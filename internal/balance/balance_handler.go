package balance

import (
	"net/http"
	"strconv"
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
	l := zap.L().Named("balance.handler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("balance.handler")
	}
	return &Handler{service: service, logger: l}
}

func (h *Handler) writeServiceError(c *gin.Context, err error) {
	httpErr := apperror.ToHTTP(err)
	h.logger.Warn("balance request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Int("status", httpErr.Status),
		zap.String("code", httpErr.Code),
	)
	response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
}

// yearParam resolves the optional ?year= query, defaulting to the
// current year.
func yearParam(c *gin.Context) (int, error) {
	raw := c.Query("year")
	if raw == "" {
		return time.Now().Year(), nil
	}
	return strconv.Atoi(raw)
}

// GetMyBalances returns the authenticated user's ledger.
func (h *Handler) GetMyBalances(c *gin.Context) {
	year, err := yearParam(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, apperror.CodeInvalidInput, "year must be a number", nil)
		return
	}

	userID := c.GetString("user_id")
	resp, err := h.service.GetBalances(c.Request.Context(), userID, year)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp, nil)
}

// GetUserBalances returns another user's ledger, for managers.
func (h *Handler) GetUserBalances(c *gin.Context) {
	year, err := yearParam(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, apperror.CodeInvalidInput, "year must be a number", nil)
		return
	}

	resp, err := h.service.GetBalances(c.Request.Context(), c.Param("userId"), year)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp, nil)
}

// Adjust overrides one field of a single ledger row.
func (h *Handler) Adjust(c *gin.Context) {
	year, err := yearParam(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, apperror.CodeInvalidInput, "year must be a number", nil)
		return
	}

	var req AdjustBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("http adjust balance validation failed", zap.Error(err))
		mapped := apperror.MapValidationError(err)
		httpErr := apperror.ToHTTP(mapped)
		response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, err.Error())
		return
	}

	resp, err := h.service.Adjust(c.Request.Context(), c.Param("userId"), c.Param("leaveTypeId"), year, req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp, nil)
}

// InitializeUser provisions one user's ledger for the year.
func (h *Handler) InitializeUser(c *gin.Context) {
	year, err := yearParam(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, apperror.CodeInvalidInput, "year must be a number", nil)
		return
	}

	if err := h.service.InitializeForUser(c.Request.Context(), c.Param("userId"), year); err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"initialized": true, "year": year}, nil)
}

// InitializeAll provisions ledgers for every directory user.
func (h *Handler) InitializeAll(c *gin.Context) {
	year, err := yearParam(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, apperror.CodeInvalidInput, "year must be a number", nil)
		return
	}

	result, err := h.service.InitializeAllUsers(c.Request.Context(), year)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, result, nil)
}
