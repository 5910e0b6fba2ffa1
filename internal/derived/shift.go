// Package derived 从同步快照和当前时间计算只读指标，纯函数，不修改状态。
package derived

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"Attendify/internal/model"
)

// Clock 一天中的时刻
type Clock struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// InLocation 把时钟读数换到业务时区，班次和自然日都按这个时区划分。loc 为空时原样返回
func InLocation(now func() time.Time, loc *time.Location) func() time.Time {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		return now
	}
	return func() time.Time { return now().In(loc) }
}

// On 取 day 所在日期的该时刻，时区沿用 day
func (c Clock) On(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, c.Hour, c.Minute, 0, 0, day.Location())
}

// ParseClock 接受 HH:MM 和 HH:MM:SS
func ParseClock(s string) (Clock, bool) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return Clock{}, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return Clock{}, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 || len(parts[1]) != 2 {
		return Clock{}, false
	}
	if len(parts) == 3 {
		if sec, err := strconv.Atoi(parts[2]); err != nil || sec < 0 || sec > 59 {
			return Clock{}, false
		}
	}
	return Clock{Hour: h, Minute: m}, true
}

// Shift 班次窗口
type Shift struct {
	Start         Clock   `json:"start"`
	End           Clock   `json:"end"`
	RequiredHours float64 `json:"required_hours"`
}

var (
	defaultStart = Clock{Hour: 9}
	defaultEnd   = Clock{Hour: 18}
)

// DefaultShift 设置尚未加载时使用 09:00-18:00，8 小时
func DefaultShift() Shift {
	return Shift{Start: defaultStart, End: defaultEnd, RequiredHours: model.DefaultRequiredHours}
}

// ShiftFromSettings 缺失或格式错误的字段回落到默认值
func ShiftFromSettings(s model.Settings) Shift {
	shift := DefaultShift()
	if c, ok := ParseClock(s.Get(model.SettingShiftStart, "")); ok {
		shift.Start = c
	}
	if c, ok := ParseClock(s.Get(model.SettingShiftEnd, "")); ok {
		shift.End = c
	}
	shift.RequiredHours = s.RequiredHours()
	return shift
}

// IsLate 严格晚于当天班次开始才算迟到，正好 09:00 不算
func IsLate(checkIn time.Time, s Shift) bool {
	return checkIn.After(s.Start.On(checkIn))
}

// Classify 签到时刻的状态，签到时决定并随记录保存
func Classify(checkIn time.Time, s Shift) model.AttendanceStatus {
	if IsLate(checkIn, s) {
		return model.AttendanceLate
	}
	return model.AttendancePresent
}

// IsEarlyCheckOut 严格早于当天班次结束
func IsEarlyCheckOut(t time.Time, s Shift) bool {
	return t.Before(s.End.On(t))
}

// RemainingTime 距离当天班次结束的剩余时间，已过结束时间时返回 false
func RemainingTime(s Shift, now time.Time) (string, bool) {
	end := s.End.On(now)
	if !now.Before(end) {
		return "", false
	}
	return FormatDuration(end.Sub(now)), true
}

// FormatDuration 整小时加整分钟，例如 "0h 30m"
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	return fmt.Sprintf("%dh %dm", h, m)
}
