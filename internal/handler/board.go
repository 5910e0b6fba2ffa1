package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"Attendify/internal/dispatch"
	"Attendify/pkg/response"
)

// PostAnnouncement 发布公告
// POST /v1/announcements
func (h *Handler) PostAnnouncement(ctx context.Context, c *app.RequestContext) {
	if !h.requireAuth(ctx, c) {
		return
	}
	var req dispatch.AnnouncementInput
	if !bind(ctx, c, &req) {
		return
	}
	if err := h.actions.PostAnnouncement(ctx, req); err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.NoContent(ctx, c)
}

// AddHoliday 新增假日
// POST /v1/holidays
func (h *Handler) AddHoliday(ctx context.Context, c *app.RequestContext) {
	if !h.requireAuth(ctx, c) {
		return
	}
	var req dispatch.HolidayInput
	if !bind(ctx, c, &req) {
		return
	}
	if err := h.actions.AddHoliday(ctx, req); err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.NoContent(ctx, c)
}

// DeleteHoliday 删除假日
// DELETE /v1/holidays/:id
func (h *Handler) DeleteHoliday(ctx context.Context, c *app.RequestContext) {
	if !h.requireAuth(ctx, c) {
		return
	}
	if err := h.actions.DeleteHoliday(ctx, c.Param("id")); err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.NoContent(ctx, c)
}

// SendNotification 发送通知，user_id 为 all 时广播
// POST /v1/notifications
func (h *Handler) SendNotification(ctx context.Context, c *app.RequestContext) {
	if !h.requireAuth(ctx, c) {
		return
	}
	var req dispatch.NotificationInput
	if !bind(ctx, c, &req) {
		return
	}
	if err := h.actions.SendNotification(ctx, req); err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.NoContent(ctx, c)
}

// MarkNotificationRead 标记已读
// POST /v1/notifications/:id/read
func (h *Handler) MarkNotificationRead(ctx context.Context, c *app.RequestContext) {
	if !h.requireAuth(ctx, c) {
		return
	}
	if err := h.actions.MarkNotificationRead(ctx, c.Param("id")); err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.NoContent(ctx, c)
}

// ClearNotifications 清空当前用户的通知
// DELETE /v1/notifications
func (h *Handler) ClearNotifications(ctx context.Context, c *app.RequestContext) {
	if !h.requireAuth(ctx, c) {
		return
	}
	if err := h.actions.ClearNotifications(ctx); err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.NoContent(ctx, c)
}
