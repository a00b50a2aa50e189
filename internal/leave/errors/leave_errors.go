package leaveerrors

import (
	"net/http"

	"github.com/Christabll/IST-LeaveManagementService/internal/shared/apperror"
)

var (
	ErrInvalidLeaveRequestID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid leave request id",
		http.StatusBadRequest,
	)
	ErrLeaveRequestNotFound = apperror.New(
		apperror.CodeNotFound,
		"leave request not found",
		http.StatusNotFound,
	)
	ErrInvalidDateFormat = apperror.New(
		apperror.CodeInvalidInput,
		"dates must use the YYYY-MM-DD format",
		http.StatusBadRequest,
	)
	ErrNoBusinessDays = apperror.New(
		apperror.CodeInvalidInput,
		"the requested range contains no business days",
		http.StatusBadRequest,
	)
	ErrPendingRequestExists = apperror.New(
		apperror.CodeConflict,
		"a pending leave request already exists",
		http.StatusConflict,
	)
	ErrAlreadyDecided = apperror.New(
		apperror.CodeInvalidState,
		"the leave request has already been decided",
		http.StatusConflict,
	)
)
