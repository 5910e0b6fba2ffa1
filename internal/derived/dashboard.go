package derived

import (
	"sort"
	"time"

	"Attendify/internal/model"
)

// Dashboard 某一时刻的全部派生指标
type Dashboard struct {
	Now               time.Time               `json:"now"`
	Session           *model.AttendanceRecord `json:"session,omitempty"`
	RemainingTime     string                  `json:"remaining_time,omitempty"`
	LeaveBalances     []LeaveBalance          `json:"leave_balances"`
	Weekly            []DayHours              `json:"weekly"`
	UpcomingHolidays  []model.Holiday         `json:"upcoming_holidays"`
	Shift             Shift                   `json:"shift"`
	ShiftProgress     float64                 `json:"shift_progress"`
	ElapsedHours      float64                 `json:"elapsed_hours"`
	MonthlyHours      float64                 `json:"monthly_hours"`
	AttendanceRate    int                     `json:"attendance_rate"`
	LateCount         int                     `json:"late_count"`
	TotalLeaveBalance int                     `json:"total_leave_balance"`
	Unread            int                     `json:"unread_notifications"`
	CheckedIn         bool                    `json:"checked_in"`
	LateIfCheckInNow  bool                    `json:"late_if_check_in_now"`
	EarlyIfCheckOut   bool                    `json:"early_if_check_out_now"`
	TargetReached     bool                    `json:"target_reached"`
	Offline           bool                    `json:"offline"`
}

// Compute 由快照和当前时间得出仪表盘，重复调用结果一致
func Compute(snap *model.Snapshot, now time.Time) Dashboard {
	if snap == nil {
		snap = &model.Snapshot{}
	}
	shift := ShiftFromSettings(snap.Settings)
	d := Dashboard{
		Now:              now,
		Shift:            shift,
		Offline:          snap.Offline,
		Unread:           snap.UnreadCount(),
		LeaveBalances:    []LeaveBalance{},
		Weekly:           []DayHours{},
		UpcomingHolidays: UpcomingHolidays(snap.Holidays, now),
	}
	if snap.Identity == nil {
		return d
	}
	userID := snap.Identity.ID

	if session, ok := CurrentSession(snap.Attendance, userID); ok {
		d.CheckedIn = true
		d.Session = session
		d.ShiftProgress = ShiftProgress(session, shift, now)
		d.ElapsedHours = ElapsedHours(session, now)
		d.EarlyIfCheckOut = IsEarlyCheckOut(now, shift)
		if remaining, ok := RemainingTime(shift, now); ok {
			d.RemainingTime = remaining
		} else {
			d.TargetReached = true
		}
	} else {
		d.LateIfCheckInNow = IsLate(now, shift)
	}

	d.MonthlyHours = MonthlyWorkHours(snap.Attendance, userID, now)
	d.AttendanceRate = AttendanceRate(snap.Attendance, userID, now)
	d.LateCount = LateCount(snap.Attendance, userID, now)
	d.LeaveBalances = LeaveBalances(snap.Policies, snap.Leaves, userID)
	d.TotalLeaveBalance = TotalLeaveBalance(d.LeaveBalances)
	d.Weekly = WeeklySeries(snap.Attendance, userID, now)
	return d
}

// UpcomingHolidays 今天及以后的假日，按日期升序
func UpcomingHolidays(holidays []model.Holiday, now time.Time) []model.Holiday {
	today := now.Format(model.DateLayout)
	out := make([]model.Holiday, 0)
	for _, h := range holidays {
		if h.Date.IsZero() {
			continue
		}
		if h.Date.Format(model.DateLayout) >= today {
			out = append(out, h)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}
