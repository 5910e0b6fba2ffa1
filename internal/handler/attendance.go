package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"Attendify/internal/model"
	"Attendify/pkg/response"
)

type CheckOutRequest struct {
	Confirm bool `json:"confirm"`
}

// CheckIn 签到
// POST /v1/attendance/check-in
func (h *Handler) CheckIn(ctx context.Context, c *app.RequestContext) {
	if !h.requireAuth(ctx, c) {
		return
	}
	status, err := h.actions.CheckIn(ctx)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.Success(ctx, c, map[string]model.AttendanceStatus{"status": status})
}

// CheckOut 签退，提前签退需要 confirm=true，否则返回 409 和剩余时间
// POST /v1/attendance/check-out
func (h *Handler) CheckOut(ctx context.Context, c *app.RequestContext) {
	if !h.requireAuth(ctx, c) {
		return
	}
	var req CheckOutRequest
	if len(c.Request.Body()) > 0 && !bind(ctx, c, &req) {
		return
	}
	res, err := h.actions.CheckOut(ctx, req.Confirm)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.Success(ctx, c, res)
}
