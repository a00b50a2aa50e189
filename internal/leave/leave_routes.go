package leave

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
	requests := r.Group("/leave-requests")
	requests.Use(middleware.AuthMiddleware(), middleware.RateLimitByUser(5, 10))
	{
		requests.POST("", middleware.RBACAuthorize(rbacService, "leave", "apply"), handler.Apply)
		requests.GET("/my", middleware.RBACAuthorize(rbacService, "leave", "read"), handler.GetMyRequests)
		requests.GET("/pending", middleware.RBACAuthorize(rbacService, "leave", "approve"), handler.GetPending)
		requests.PATCH("/:id/approve", middleware.RBACAuthorize(rbacService, "leave", "approve"), handler.Approve)
		requests.PATCH("/:id/reject", middleware.RBACAuthorize(rbacService, "leave", "approve"), handler.Reject)
		requests.GET("/team-on-leave", middleware.RBACAuthorize(rbacService, "leave", "approve"), handler.TeamOnLeave)
	}
}
