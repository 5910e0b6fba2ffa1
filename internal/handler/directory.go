package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"Attendify/internal/dispatch"
	"Attendify/pkg/response"
)

type DepartmentRequest struct {
	Name string `json:"name"`
}

// AddEmployee 新增员工
// POST /v1/employees
func (h *Handler) AddEmployee(ctx context.Context, c *app.RequestContext) {
	if !h.requireAuth(ctx, c) {
		return
	}
	var req dispatch.EmployeeInput
	if !bind(ctx, c, &req) {
		return
	}
	if err := h.actions.AddEmployee(ctx, req); err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.NoContent(ctx, c)
}

// UpdateEmployee 修改员工
// PUT /v1/employees/:id
func (h *Handler) UpdateEmployee(ctx context.Context, c *app.RequestContext) {
	if !h.requireAuth(ctx, c) {
		return
	}
	var req dispatch.EmployeeInput
	if !bind(ctx, c, &req) {
		return
	}
	if err := h.actions.UpdateEmployee(ctx, c.Param("id"), req); err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.NoContent(ctx, c)
}

// DeleteEmployee 删除员工，需要 ?confirm=true
// DELETE /v1/employees/:id
func (h *Handler) DeleteEmployee(ctx context.Context, c *app.RequestContext) {
	if !h.requireAuth(ctx, c) {
		return
	}
	if err := h.actions.DeleteEmployee(ctx, c.Param("id"), queryBool(c, "confirm")); err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.NoContent(ctx, c)
}

// AddDepartment 新增部门
// POST /v1/departments
func (h *Handler) AddDepartment(ctx context.Context, c *app.RequestContext) {
	if !h.requireAuth(ctx, c) {
		return
	}
	var req DepartmentRequest
	if !bind(ctx, c, &req) {
		return
	}
	if err := h.actions.AddDepartment(ctx, req.Name); err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.NoContent(ctx, c)
}

// RenameDepartment 部门按名称定位
// PUT /v1/departments/:name
func (h *Handler) RenameDepartment(ctx context.Context, c *app.RequestContext) {
	if !h.requireAuth(ctx, c) {
		return
	}
	var req DepartmentRequest
	if !bind(ctx, c, &req) {
		return
	}
	if err := h.actions.RenameDepartment(ctx, c.Param("name"), req.Name); err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.NoContent(ctx, c)
}

// DeleteDepartment 删除部门
// DELETE /v1/departments/:name
func (h *Handler) DeleteDepartment(ctx context.Context, c *app.RequestContext) {
	if !h.requireAuth(ctx, c) {
		return
	}
	if err := h.actions.DeleteDepartment(ctx, c.Param("name")); err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.NoContent(ctx, c)
}
