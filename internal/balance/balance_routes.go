package balance

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
	balances := r.Group("/leave-balances")
	balances.Use(middleware.AuthMiddleware())
	{
		balances.GET("", middleware.RBACAuthorize(rbacService, "balance", "read"), handler.GetMyBalances)
		balances.GET("/users/:userId", middleware.RBACAuthorize(rbacService, "balance", "read_all"), handler.GetUserBalances)
		balances.PATCH("/users/:userId/types/:leaveTypeId", middleware.RBACAuthorize(rbacService, "balance", "adjust"), handler.Adjust)
		balances.POST("/users/:userId/initialize", middleware.RBACAuthorize(rbacService, "balance", "initialize"), handler.InitializeUser)
		balances.POST("/initialize", middleware.RBACAuthorize(rbacService, "balance", "initialize"), handler.InitializeAll)
	}
}
