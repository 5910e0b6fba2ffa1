package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"Attendify/internal/dispatch"
	"Attendify/internal/model"
	"Attendify/pkg/response"
)

type LeaveStatusRequest struct {
	Status string `json:"status"`
}

// SubmitLeave 提交请假
// POST /v1/leaves
func (h *Handler) SubmitLeave(ctx context.Context, c *app.RequestContext) {
	if !h.requireAuth(ctx, c) {
		return
	}
	var req dispatch.LeaveInput
	if !bind(ctx, c, &req) {
		return
	}
	if err := h.actions.SubmitLeave(ctx, req); err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.NoContent(ctx, c)
}

// UpdateLeaveStatus 审批
// PATCH /v1/leaves/:id
func (h *Handler) UpdateLeaveStatus(ctx context.Context, c *app.RequestContext) {
	if !h.requireAuth(ctx, c) {
		return
	}
	var req LeaveStatusRequest
	if !bind(ctx, c, &req) {
		return
	}
	if err := h.actions.UpdateLeaveStatus(ctx, c.Param("id"), req.Status); err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.NoContent(ctx, c)
}

// UpdatePolicy 修改假期额度
// PUT /v1/policies
func (h *Handler) UpdatePolicy(ctx context.Context, c *app.RequestContext) {
	if !h.requireAuth(ctx, c) {
		return
	}
	var req model.LeavePolicy
	if !bind(ctx, c, &req) {
		return
	}
	if err := h.actions.UpdatePolicy(ctx, req); err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.NoContent(ctx, c)
}
