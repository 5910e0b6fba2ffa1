package derived

import (
	"math"
	"sort"
	"time"

	"Attendify/internal/model"
)

// WorkingDaysBaseline 出勤率使用的固定月工作日基数
const WorkingDaysBaseline = 22

// UserRecords 只保留指定用户的记录，按签到时间倒序
func UserRecords(records []model.AttendanceRecord, userID string) []model.AttendanceRecord {
	out := make([]model.AttendanceRecord, 0, len(records))
	for _, r := range records {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CheckIn.After(out[j].CheckIn)
	})
	return out
}

// CurrentSession 最近一次签到尚未签退时返回该记录
func CurrentSession(records []model.AttendanceRecord, userID string) (*model.AttendanceRecord, bool) {
	var latest *model.AttendanceRecord
	for i := range records {
		r := &records[i]
		if r.UserID != userID || r.CheckIn.IsZero() {
			continue
		}
		if latest == nil || r.CheckIn.After(latest.CheckIn) {
			latest = r
		}
	}
	if latest == nil || !latest.IsOpen() {
		return nil, false
	}
	rec := *latest
	return &rec, true
}

// ShiftProgress 签到到班次结束之间已经过去的百分比，范围 [0, 100]
func ShiftProgress(session *model.AttendanceRecord, s Shift, now time.Time) float64 {
	if session == nil || !session.IsOpen() {
		return 0
	}
	end := s.End.On(session.CheckIn)
	if !session.CheckIn.Before(end) {
		return 100
	}
	total := end.Sub(session.CheckIn)
	elapsed := now.Sub(session.CheckIn)
	p := float64(elapsed) / float64(total) * 100
	return math.Min(100, math.Max(0, p))
}

// ElapsedHours 当前会话已工作小时数，随时间单调不减
func ElapsedHours(session *model.AttendanceRecord, now time.Time) float64 {
	if session == nil || !session.IsOpen() || session.CheckIn.IsZero() {
		return 0
	}
	d := now.Sub(session.CheckIn)
	if d < 0 {
		return 0
	}
	return d.Hours()
}

// recordDay 记录所属日历日
func recordDay(r model.AttendanceRecord, loc *time.Location) string {
	if r.Date != "" {
		return r.Date
	}
	if r.CheckIn.IsZero() {
		return ""
	}
	return r.CheckIn.In(loc).Format(model.DateLayout)
}

func monthRecords(records []model.AttendanceRecord, userID string, now time.Time) []model.AttendanceRecord {
	prefix := now.Format("2006-01")
	out := make([]model.AttendanceRecord, 0)
	for _, r := range records {
		if r.UserID != userID {
			continue
		}
		day := recordDay(r, now.Location())
		if len(day) >= 7 && day[:7] == prefix {
			out = append(out, r)
		}
	}
	return out
}

// MonthlyWorkHours 本月已确认工时，加上进行中会话的实时时长
func MonthlyWorkHours(records []model.AttendanceRecord, userID string, now time.Time) float64 {
	total := 0.0
	for _, r := range monthRecords(records, userID, now) {
		total += r.WorkHours
	}
	if session, ok := CurrentSession(records, userID); ok {
		total += ElapsedHours(session, now)
	}
	return total
}

// AttendanceRate min(100, round(本月出勤天数 / 22 * 100))
func AttendanceRate(records []model.AttendanceRecord, userID string, now time.Time) int {
	days := make(map[string]struct{})
	for _, r := range monthRecords(records, userID, now) {
		days[recordDay(r, now.Location())] = struct{}{}
	}
	rate := int(math.Round(float64(len(days)) / WorkingDaysBaseline * 100))
	if rate > 100 {
		return 100
	}
	return rate
}

// LateCount 本月迟到次数
func LateCount(records []model.AttendanceRecord, userID string, now time.Time) int {
	n := 0
	for _, r := range monthRecords(records, userID, now) {
		if r.Status == model.AttendanceLate {
			n++
		}
	}
	return n
}

// InclusiveDays 起止日期之间的天数（含两端），顺序颠倒时取绝对值
func InclusiveDays(start, end time.Time) int {
	s := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	e := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	days := int(e.Sub(s).Hours() / 24)
	if days < 0 {
		days = -days
	}
	return days + 1
}

// LeaveBalance 单个假期类型的余额
type LeaveBalance struct {
	LeaveType   model.LeaveType `json:"leave_type"`
	DisplayName string          `json:"display_name"`
	Allowance   int             `json:"allowance"`
	Taken       int             `json:"taken"`
	Remaining   int             `json:"remaining"`
}

// LeaveBalances 每个非 UNPAID 额度减去该用户已批准的同类请假天数，不会为负
func LeaveBalances(policies []model.LeavePolicy, leaves []model.LeaveRequest, userID string) []LeaveBalance {
	taken := make(map[model.LeaveType]int)
	for _, l := range leaves {
		if l.UserID != userID || l.Status != model.LeaveApproved {
			continue
		}
		if l.StartDate.IsZero() || l.EndDate.IsZero() {
			continue
		}
		taken[l.Type] += InclusiveDays(l.StartDate, l.EndDate)
	}

	out := make([]LeaveBalance, 0, len(policies))
	for _, p := range policies {
		if p.LeaveType == model.LeaveUnpaid {
			continue
		}
		used := taken[p.LeaveType]
		remaining := p.Allowance - used
		if remaining < 0 {
			remaining = 0
		}
		out = append(out, LeaveBalance{
			LeaveType:   p.LeaveType,
			DisplayName: p.DisplayName,
			Allowance:   p.Allowance,
			Taken:       used,
			Remaining:   remaining,
		})
	}
	return out
}

// TotalLeaveBalance 各类型剩余天数之和
func TotalLeaveBalance(balances []LeaveBalance) int {
	total := 0
	for _, b := range balances {
		total += b.Remaining
	}
	return total
}

// DayHours 周图表中的一天
type DayHours struct {
	Date  string  `json:"date"`
	Label string  `json:"label"`
	Hours float64 `json:"hours"`
}

// WeeklySeries 含今天在内的最近 7 天，每天的工时合计保留一位小数
func WeeklySeries(records []model.AttendanceRecord, userID string, now time.Time) []DayHours {
	byDay := make(map[string]float64)
	for _, r := range records {
		if r.UserID != userID {
			continue
		}
		byDay[recordDay(r, now.Location())] += r.WorkHours
	}

	out := make([]DayHours, 0, 7)
	for i := 6; i >= 0; i-- {
		d := now.AddDate(0, 0, -i)
		key := d.Format(model.DateLayout)
		out = append(out, DayHours{
			Date:  key,
			Label: d.Weekday().String()[:3],
			Hours: math.Round(byDay[key]*10) / 10,
		})
	}
	return out
}
