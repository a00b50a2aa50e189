package holiday

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
	holidays := r.Group("/public-holidays")
	holidays.Use(middleware.AuthMiddleware())
	{
		holidays.GET("", middleware.RBACAuthorize(rbacService, "holiday", "read"), handler.Upcoming)
	}
}
