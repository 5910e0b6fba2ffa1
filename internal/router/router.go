package router

import (
	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/route"

	"Attendify/internal/handler"
)

// Middlewares 由启动流程按配置构建，nil 表示不启用
type Middlewares struct {
	Recover    app.HandlerFunc
	Tracing    app.HandlerFunc
	Telemetry  app.HandlerFunc
	CORS       app.HandlerFunc
	Auth       app.HandlerFunc
	LoginLimit app.HandlerFunc
	APILimit   app.HandlerFunc
	CSRF       []app.HandlerFunc
}

func use(handlers ...app.HandlerFunc) []app.HandlerFunc {
	out := make([]app.HandlerFunc, 0, len(handlers))
	for _, h := range handlers {
		if h != nil {
			out = append(out, h)
		}
	}
	return out
}

func Register(r *route.Engine, h *handler.Handler, mw Middlewares) {
	if global := use(mw.Recover, mw.Tracing, mw.Telemetry, mw.CORS); len(global) > 0 {
		r.Use(global...)
	}

	v1 := r.Group("/v1")
	if len(mw.CSRF) > 0 {
		v1.Use(mw.CSRF...)
	}
	v1.GET("/csrf", h.CSRFToken)
	v1.GET("/notices", h.ListNotices)
	v1.DELETE("/notices/:id", h.DismissNotice)
	v1.GET("/preferences/theme", h.GetTheme)
	v1.PUT("/preferences/theme", h.SetTheme)

	// 认证相关路由
	auth := v1.Group("/auth", use(mw.LoginLimit)...)
	{
		auth.POST("/login", h.Login)
		auth.POST("/token/refresh", h.RefreshToken)
	}

	// 以下路由需要访问令牌
	api := v1.Group("", use(mw.Auth, mw.APILimit)...)
	{
		api.POST("/auth/logout", h.Logout)

		api.GET("/users/me", h.GetProfile)
		api.PUT("/users/me/password", h.UpdatePassword)
		api.PUT("/users/me/avatar", h.UpdateAvatar)

		api.GET("/state", h.GetState)
		api.POST("/state/sync", h.Resync)
		api.GET("/dashboard", h.GetDashboard)

		api.POST("/attendance/check-in", h.CheckIn)
		api.POST("/attendance/check-out", h.CheckOut)

		api.POST("/leaves", h.SubmitLeave)
		api.PATCH("/leaves/:id", h.UpdateLeaveStatus)
		api.PUT("/policies", h.UpdatePolicy)
		api.PUT("/settings/:key", h.UpdateSetting)

		api.POST("/employees", h.AddEmployee)
		api.PUT("/employees/:id", h.UpdateEmployee)
		api.DELETE("/employees/:id", h.DeleteEmployee)
		api.POST("/departments", h.AddDepartment)
		api.PUT("/departments/:name", h.RenameDepartment)
		api.DELETE("/departments/:name", h.DeleteDepartment)

		api.POST("/announcements", h.PostAnnouncement)
		api.POST("/holidays", h.AddHoliday)
		api.DELETE("/holidays/:id", h.DeleteHoliday)
		api.POST("/notifications", h.SendNotification)
		api.POST("/notifications/:id/read", h.MarkNotificationRead)
		api.DELETE("/notifications", h.ClearNotifications)

		api.POST("/emails", h.SendEmail)
		api.GET("/emails/logs", h.EmailLogs)
		api.GET("/emails/outbox", h.ListOutbox)

		api.GET("/reports", h.GetReport)
		api.GET("/reports/export", h.ExportReport)
		api.POST("/reports/email", h.EmailReport)
	}
}
