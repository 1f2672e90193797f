package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"

	"crowdcare-be/controllers"
	"crowdcare-be/middlewares"
	"crowdcare-be/ws"
)

// ReportRoutes sets up the citizen report routes, the admin resolution and
// department routes, and the live status socket.
func ReportRoutes(r *gin.Engine, reports *controllers.ReportController, resolutions *controllers.ResolutionController, departments *controllers.DepartmentController, socket *ws.StatusSocket) {
	report := r.Group("/api/report")
	report.Use(middlewares.AuthMiddleware())
	{
		report.POST("/create",
			middlewares.ReportRateLimiter(viper.GetInt("ratelimit.reports_per_day")),
			reports.CreateReport)
		report.GET("", reports.GetAllReports)
		report.GET("/mine", reports.GetMyReports)
		report.GET("/analytics", reports.GetAnalytics)
		report.GET("/:id", reports.GetReport)
		report.DELETE("/:id", reports.DeleteReport)
		report.POST("/:id/upvote", reports.HandleUpvote)
		report.GET("/:id/comments", reports.ListComments)
		report.POST("/:id/comments", reports.AddComment)
		report.GET("/:id/timeline", reports.GetStatusTimeline)
		report.GET("/:id/resolution", resolutions.GetResolution)
	}

	admin := r.Group("/api/report")
	admin.Use(middlewares.AuthMiddleware(), middlewares.RequireAdmin())
	{
		admin.PATCH("/:id/status", resolutions.UpdateStatus)
		admin.POST("/:id/resolve", resolutions.ResolveReport)
	}

	dept := r.Group("/api/admin/departments")
	dept.Use(middlewares.AuthMiddleware(), middlewares.RequireAdmin())
	{
		dept.GET("", departments.ListDepartments)
		dept.GET("/:name/reports", departments.GetDepartmentReports)
		dept.GET("/:name/stats", departments.GetDepartmentStats)
	}

	r.GET("/ws/reports", middlewares.AuthMiddleware(), socket.Handle)
}
