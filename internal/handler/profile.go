package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"Attendify/internal/dispatch"
	"Attendify/pkg/response"
)

// GetProfile 当前身份
// GET /v1/users/me
func (h *Handler) GetProfile(ctx context.Context, c *app.RequestContext) {
	ident, err := h.identity(c)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.Success(ctx, c, ident)
}

// UpdatePassword 修改密码
// PUT /v1/users/me/password
func (h *Handler) UpdatePassword(ctx context.Context, c *app.RequestContext) {
	if !h.requireAuth(ctx, c) {
		return
	}
	var req PasswordRequest
	if !bind(ctx, c, &req) {
		return
	}
	err := h.actions.UpdatePassword(ctx, dispatch.PasswordInput{
		Current: req.Current,
		New:     req.New,
		Confirm: req.Confirm,
	})
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.NoContent(ctx, c)
}

// UpdateAvatar 修改头像
// PUT /v1/users/me/avatar
func (h *Handler) UpdateAvatar(ctx context.Context, c *app.RequestContext) {
	if !h.requireAuth(ctx, c) {
		return
	}
	var req AvatarRequest
	if !bind(ctx, c, &req) {
		return
	}
	avatar, err := h.actions.UpdateAvatar(ctx, req.Avatar)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.Success(ctx, c, AvatarRequest{Avatar: avatar})
}
