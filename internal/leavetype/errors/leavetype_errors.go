package leavetypeerrors

import (
	"net/http"

	"github.com/Christabll/IST-LeaveManagementService/internal/shared/apperror"
)

var (
	ErrLeaveTypeExists = apperror.New(
		apperror.CodeConflict,
		"leave type already exists",
		http.StatusConflict,
	)
	ErrLeaveTypeNotFound = apperror.New(
		apperror.CodeNotFound,
		"leave type not found",
		http.StatusNotFound,
	)
	ErrInvalidLeaveTypeID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid leave type id",
		http.StatusBadRequest,
	)
)
