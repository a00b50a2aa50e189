package leavetype

import (
	"github.com/Christabll/IST-LeaveManagementService/internal/middleware"
	"github.com/Christabll/IST-LeaveManagementService/internal/rbac"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(
	r *gin.RouterGroup,
	handler *Handler,
	rbacService rbac.Service,
) {
	types := r.Group("/leave-types")
	types.Use(middleware.AuthMiddleware())
	{
		types.GET("", middleware.RBACAuthorize(rbacService, "leavetype", "read"), handler.GetAll)
		types.POST("", middleware.RBACAuthorize(rbacService, "leavetype", "create"), handler.Create)
	}
}
