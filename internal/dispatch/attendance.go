package dispatch

import (
	"context"

	"Attendify/internal/derived"
	"Attendify/internal/gateway"
	"Attendify/internal/model"
	"Attendify/pkg/errors"
)

// CheckIn 签到。迟到与否在签到时刻按当前班次设置计算，并作为记录状态提交
func (d *Dispatcher) CheckIn(ctx context.Context) (model.AttendanceStatus, error) {
	ident, err := d.identity()
	if err != nil {
		return "", err
	}
	snap := d.snapshot()
	if _, open := derived.CurrentSession(snap.Attendance, ident.ID); open {
		return "", errors.Validation("check_in", "Already checked in")
	}

	now := d.now()
	status := derived.Classify(now, derived.ShiftFromSettings(snap.Settings))
	fields := gateway.Fields{
		"status": string(status),
		"device": d.device,
	}
	if p := d.locate(ctx); p != nil {
		fields["lat"] = p.Lat
		fields["lng"] = p.Lng
	}

	err = d.run(ctx, "check_in", prefixSync, func(ctx context.Context) error {
		_, err := d.gw.CheckIn(ctx, ident.ID, fields)
		return err
	}, func() string {
		if status == model.AttendanceLate {
			return "Clocked in (Late Arrival)."
		}
		return "Clocked in successfully."
	})
	if err != nil {
		return "", err
	}
	return status, nil
}

// CheckOutResult 签退结果
type CheckOutResult struct {
	EarlyLeaving bool `json:"early_leaving"`
}

// CheckOut 签退。班次结束前签退需要 confirm，否则返回带剩余时间的 ConfirmationError
func (d *Dispatcher) CheckOut(ctx context.Context, confirm bool) (*CheckOutResult, error) {
	ident, err := d.identity()
	if err != nil {
		return nil, err
	}
	snap := d.snapshot()
	if _, open := derived.CurrentSession(snap.Attendance, ident.ID); !open {
		return nil, errors.Validation("check_out", "No active session to close")
	}

	now := d.now()
	shift := derived.ShiftFromSettings(snap.Settings)
	early := derived.IsEarlyCheckOut(now, shift)
	if early && !confirm {
		remaining, _ := derived.RemainingTime(shift, now)
		return nil, &errors.ConfirmationError{Action: "Early check-out", Remaining: remaining}
	}

	fields := gateway.Fields{}
	if p := d.locate(ctx); p != nil {
		fields["lat"] = p.Lat
		fields["lng"] = p.Lng
	}
	if early {
		fields["status"] = string(model.AttendanceEarlyLeaving)
		fields["early_leaving"] = true
	}

	err = d.run(ctx, "check_out", prefixSync, func(ctx context.Context) error {
		_, err := d.gw.CheckOut(ctx, ident.ID, fields)
		return err
	}, func() string {
		if early {
			return "Shift closed (Early Departure recorded)."
		}
		return "Shift closed successfully."
	})
	if err != nil {
		return nil, err
	}
	return &CheckOutResult{EarlyLeaving: early}, nil
}
