package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"Attendify/pkg/response"
)

type SettingRequest struct {
	Value string `json:"value"`
}

type PasswordRequest struct {
	Current string `json:"current_password"`
	New     string `json:"new_password"`
	Confirm string `json:"confirm_password"`
}

type AvatarRequest struct {
	Avatar string `json:"avatar"`
}

// UpdateSetting 修改系统设置（班次时间、SMTP 等）
// PUT /v1/settings/:key
func (h *Handler) UpdateSetting(ctx context.Context, c *app.RequestContext) {
	if !h.requireAuth(ctx, c) {
		return
	}
	var req SettingRequest
	if !bind(ctx, c, &req) {
		return
	}
	if err := h.actions.UpdateSetting(ctx, c.Param("key"), req.Value); err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.NoContent(ctx, c)
}
