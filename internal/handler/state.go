package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"Attendify/internal/model"
	"Attendify/internal/notice"
	"Attendify/pkg/errors"
	"Attendify/pkg/response"
)

type StateResponse struct {
	Snapshot *model.Snapshot `json:"snapshot"`
	Offline  bool            `json:"offline"`
}

// GetState 当前快照与离线标记
// GET /v1/state
func (h *Handler) GetState(ctx context.Context, c *app.RequestContext) {
	if !h.requireAuth(ctx, c) {
		return
	}
	response.Success(ctx, c, StateResponse{
		Snapshot: h.state.Snapshot(),
		Offline:  h.state.Offline(),
	})
}

// Resync 手动同步。被新一轮同步取代时 cancelled 为 true
// POST /v1/state/sync
func (h *Handler) Resync(ctx context.Context, c *app.RequestContext) {
	ident, err := h.identity(c)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	delta, err := h.state.Sync(ctx, ident)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.Success(ctx, c, delta)
}

// GetDashboard 最近一次重算的派生指标
// GET /v1/dashboard
func (h *Handler) GetDashboard(ctx context.Context, c *app.RequestContext) {
	if !h.requireAuth(ctx, c) {
		return
	}
	response.Success(ctx, c, h.dashboards.Latest())
}

// ListNotices 未过期的提示
// GET /v1/notices
func (h *Handler) ListNotices(ctx context.Context, c *app.RequestContext) {
	notices := h.session.Notices().Active()
	if notices == nil {
		notices = []notice.Notice{}
	}
	response.Success(ctx, c, notices)
}

// DismissNotice 手动关闭提示
// DELETE /v1/notices/:id
func (h *Handler) DismissNotice(ctx context.Context, c *app.RequestContext) {
	if !h.session.Notices().Dismiss(c.Param("id")) {
		response.Error(ctx, c, errors.NotFound)
		return
	}
	response.NoContent(ctx, c)
}

type ThemeRequest struct {
	Theme string `json:"theme"`
}

// GetTheme 主题偏好
// GET /v1/preferences/theme
func (h *Handler) GetTheme(ctx context.Context, c *app.RequestContext) {
	response.Success(ctx, c, ThemeRequest{Theme: h.session.Theme(ctx)})
}

// SetTheme 切换主题
// PUT /v1/preferences/theme
func (h *Handler) SetTheme(ctx context.Context, c *app.RequestContext) {
	var req ThemeRequest
	if !bind(ctx, c, &req) {
		return
	}
	if err := h.session.SetTheme(ctx, req.Theme); err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.Success(ctx, c, ThemeRequest{Theme: h.session.Theme(ctx)})
}
