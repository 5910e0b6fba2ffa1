package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"Attendify/internal/gateway"
	"Attendify/internal/model"
	"Attendify/pkg/errors"
)

// LeaveInput 请假申请表单
type LeaveInput struct {
	Type      string `json:"type"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Reason    string `json:"reason"`
}

func (in LeaveInput) validate() (model.LeaveType, error) {
	lt := model.LeaveType(strings.ToUpper(strings.TrimSpace(in.Type)))
	if !lt.Valid() {
		return "", errors.Validation("type", "Unknown leave type %q", in.Type)
	}
	start, err := time.Parse(model.DateLayout, strings.TrimSpace(in.StartDate))
	if err != nil {
		return "", errors.Validation("start_date", "Start date must be YYYY-MM-DD")
	}
	end, err := time.Parse(model.DateLayout, strings.TrimSpace(in.EndDate))
	if err != nil {
		return "", errors.Validation("end_date", "End date must be YYYY-MM-DD")
	}
	if end.Before(start) {
		return "", errors.Validation("end_date", "End date cannot be before start date")
	}
	if strings.TrimSpace(in.Reason) == "" {
		return "", errors.Validation("reason", "Reason is required")
	}
	return lt, nil
}

// SubmitLeave 提交请假申请
func (d *Dispatcher) SubmitLeave(ctx context.Context, in LeaveInput) error {
	ident, err := d.identity()
	if err != nil {
		return err
	}
	lt, err := in.validate()
	if err != nil {
		return err
	}
	fields := gateway.Fields{
		"user_id":    ident.ID,
		"type":       string(lt),
		"start_date": strings.TrimSpace(in.StartDate),
		"end_date":   strings.TrimSpace(in.EndDate),
		"reason":     strings.TrimSpace(in.Reason),
	}
	return d.run(ctx, "submit_leave", prefixSync, func(ctx context.Context) error {
		_, err := d.gw.SubmitLeave(ctx, fields)
		return err
	}, message("Leave request submitted."))
}

// UpdateLeaveStatus 审批请假，只接受 APPROVED / REJECTED
func (d *Dispatcher) UpdateLeaveStatus(ctx context.Context, id string, status string) error {
	if _, err := d.identity(); err != nil {
		return err
	}
	st := model.LeaveStatus(strings.ToUpper(strings.TrimSpace(status)))
	if st != model.LeaveApproved && st != model.LeaveRejected {
		return errors.Validation("status", "Status must be APPROVED or REJECTED")
	}
	if strings.TrimSpace(id) == "" {
		return errors.Validation("id", "Leave request id is required")
	}
	return d.run(ctx, "update_leave_status", prefixError, func(ctx context.Context) error {
		_, err := d.gw.UpdateLeaveStatus(ctx, id, st)
		return err
	}, message(fmt.Sprintf("Status updated to %s.", st)))
}

// UpdatePolicy 修改年度额度
func (d *Dispatcher) UpdatePolicy(ctx context.Context, policy model.LeavePolicy) error {
	if _, err := d.identity(); err != nil {
		return err
	}
	if !policy.LeaveType.Valid() {
		return errors.Validation("leave_type", "Unknown leave type %q", policy.LeaveType)
	}
	if policy.Allowance < 0 {
		return errors.Validation("allowance", "Allowance cannot be negative")
	}
	fields := gateway.Fields{
		"leave_type": string(policy.LeaveType),
		"allowance":  policy.Allowance,
	}
	if policy.ID != "" {
		fields["id"] = policy.ID
	}
	if policy.DisplayName != "" {
		fields["display_name"] = policy.DisplayName
	}
	return d.run(ctx, "update_policy", prefixError, func(ctx context.Context) error {
		_, err := d.gw.UpdatePolicy(ctx, fields)
		return err
	}, message("Policy updated."))
}
