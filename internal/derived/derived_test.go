package derived

import (
	"math"
	"reflect"
	"testing"
	"time"

	"Attendify/internal/model"
)

var loc = time.UTC

func at(day string, hh, mm int) time.Time {
	d, _ := time.ParseInLocation(model.DateLayout, day, loc)
	return time.Date(d.Year(), d.Month(), d.Day(), hh, mm, 0, 0, loc)
}

func ptr(t time.Time) *time.Time { return &t }

func TestLatenessBoundary(t *testing.T) {
	shift := DefaultShift()
	cases := []struct {
		h, m int
		want model.AttendanceStatus
	}{
		{8, 59, model.AttendancePresent},
		{9, 0, model.AttendancePresent},
		{9, 1, model.AttendanceLate},
	}
	for _, c := range cases {
		if got := Classify(at("2024-06-10", c.h, c.m), shift); got != c.want {
			t.Errorf("%02d:%02d -> %s, want %s", c.h, c.m, got, c.want)
		}
	}
	// 09:00:01 严格晚于开始时间
	if !IsLate(at("2024-06-10", 9, 0).Add(time.Second), shift) {
		t.Errorf("one second after start should be late")
	}
}

func TestShiftFromSettingsFallsBack(t *testing.T) {
	s := ShiftFromSettings(model.Settings{
		model.SettingShiftStart:    "08:30",
		model.SettingShiftEnd:      "bogus",
		model.SettingRequiredHours: "x",
	})
	if s.Start != (Clock{Hour: 8, Minute: 30}) || s.End != (Clock{Hour: 18}) || s.RequiredHours != 8 {
		t.Fatalf("shift = %+v", s)
	}
	if got := ShiftFromSettings(nil); got != DefaultShift() {
		t.Fatalf("nil settings should use defaults, got %+v", got)
	}
	if _, ok := ParseClock("24:00"); ok {
		t.Fatalf("24:00 is not a valid clock")
	}
	if c, ok := ParseClock("17:45:00"); !ok || c.String() != "17:45" {
		t.Fatalf("HH:MM:SS should parse, got %v %v", c, ok)
	}
}

func TestEarlyCheckOutAndRemaining(t *testing.T) {
	shift := DefaultShift()
	now := at("2024-06-10", 17, 30)
	if !IsEarlyCheckOut(now, shift) {
		t.Fatalf("17:30 should be early")
	}
	if IsEarlyCheckOut(at("2024-06-10", 18, 0), shift) {
		t.Fatalf("exactly 18:00 is not early")
	}
	got, ok := RemainingTime(shift, now)
	if !ok || got != "0h 30m" {
		t.Fatalf("remaining = %q %v", got, ok)
	}
	if got, _ := RemainingTime(shift, at("2024-06-10", 9, 15).Add(30*time.Second)); got != "8h 44m" {
		t.Fatalf("remaining = %q", got)
	}
	if _, ok := RemainingTime(shift, at("2024-06-10", 18, 5)); ok {
		t.Fatalf("remaining time is absent after shift end")
	}
}

func TestShiftProgress(t *testing.T) {
	shift := DefaultShift()
	session := &model.AttendanceRecord{UserID: "7", CheckIn: at("2024-06-10", 9, 0)}

	if p := ShiftProgress(session, shift, at("2024-06-10", 13, 30)); p != 50 {
		t.Fatalf("progress = %v", p)
	}
	if p := ShiftProgress(session, shift, at("2024-06-10", 20, 0)); p != 100 {
		t.Fatalf("progress should clamp to 100, got %v", p)
	}
	if p := ShiftProgress(session, shift, at("2024-06-10", 8, 0)); p != 0 {
		t.Fatalf("progress should clamp to 0, got %v", p)
	}
	late := &model.AttendanceRecord{UserID: "7", CheckIn: at("2024-06-10", 18, 30)}
	if p := ShiftProgress(late, shift, at("2024-06-10", 18, 31)); p != 100 {
		t.Fatalf("check-in after shift end is complete, got %v", p)
	}
}

func TestElapsedHoursMonotonic(t *testing.T) {
	session := &model.AttendanceRecord{UserID: "7", CheckIn: at("2024-06-10", 9, 0)}
	prev := -1.0
	for i := 0; i < 10; i++ {
		h := ElapsedHours(session, at("2024-06-10", 9, 0).Add(time.Duration(i)*17*time.Minute))
		if h < prev {
			t.Fatalf("elapsed decreased: %v < %v", h, prev)
		}
		prev = h
	}
	closed := &model.AttendanceRecord{CheckIn: at("2024-06-10", 9, 0), CheckOut: ptr(at("2024-06-10", 17, 0))}
	if ElapsedHours(closed, at("2024-06-10", 18, 0)) != 0 {
		t.Fatalf("closed session has no live elapsed time")
	}
}

func TestCurrentSessionUsesLatestCheckIn(t *testing.T) {
	records := []model.AttendanceRecord{
		{ID: "1", UserID: "7", CheckIn: at("2024-06-09", 9, 0)},
		{ID: "2", UserID: "7", CheckIn: at("2024-06-10", 9, 0), CheckOut: ptr(at("2024-06-10", 18, 0))},
		{ID: "3", UserID: "8", CheckIn: at("2024-06-11", 9, 0)},
	}
	if _, ok := CurrentSession(records, "7"); ok {
		t.Fatalf("latest record is closed, no session expected")
	}
	records = append(records, model.AttendanceRecord{ID: "4", UserID: "7", CheckIn: at("2024-06-11", 9, 5)})
	s, ok := CurrentSession(records, "7")
	if !ok || s.ID != "4" {
		t.Fatalf("session = %+v", s)
	}
}

func TestMonthlyHoursRateAndLateCount(t *testing.T) {
	now := at("2024-06-20", 11, 0)
	records := []model.AttendanceRecord{
		{UserID: "7", Date: "2024-06-03", CheckIn: at("2024-06-03", 9, 0), WorkHours: 8, Status: model.AttendancePresent, CheckOut: ptr(at("2024-06-03", 17, 0))},
		{UserID: "7", Date: "2024-06-03", CheckIn: at("2024-06-03", 18, 0), WorkHours: 1, Status: model.AttendanceLate, CheckOut: ptr(at("2024-06-03", 19, 0))},
		{UserID: "7", Date: "2024-06-04", CheckIn: at("2024-06-04", 9, 30), WorkHours: 7.5, Status: model.AttendanceLate, CheckOut: ptr(at("2024-06-04", 17, 0))},
		{UserID: "7", Date: "2024-05-31", CheckIn: at("2024-05-31", 9, 0), WorkHours: 8, Status: model.AttendanceLate, CheckOut: ptr(at("2024-05-31", 17, 0))},
		{UserID: "8", Date: "2024-06-05", CheckIn: at("2024-06-05", 9, 0), WorkHours: 8},
		{UserID: "7", Date: "2024-06-20", CheckIn: at("2024-06-20", 9, 0), Status: model.AttendancePresent},
	}

	// 16.5 已确认 + 进行中 2 小时
	if got := MonthlyWorkHours(records, "7", now); math.Abs(got-18.5) > 1e-9 {
		t.Fatalf("monthly hours = %v", got)
	}
	// 3 个不同日期 / 22 = 13.6% -> 14
	if got := AttendanceRate(records, "7", now); got != 14 {
		t.Fatalf("attendance rate = %d", got)
	}
	if got := LateCount(records, "7", now); got != 2 {
		t.Fatalf("late count = %d", got)
	}
}

func TestAttendanceRateCapped(t *testing.T) {
	now := at("2024-07-31", 20, 0)
	var records []model.AttendanceRecord
	for d := 1; d <= 30; d++ {
		day := time.Date(2024, 7, d, 9, 0, 0, 0, loc)
		records = append(records, model.AttendanceRecord{UserID: "7", Date: day.Format(model.DateLayout), CheckIn: day})
	}
	if got := AttendanceRate(records, "7", now); got != 100 {
		t.Fatalf("rate should cap at 100, got %d", got)
	}
}

func TestLeaveBalance(t *testing.T) {
	policies := []model.LeavePolicy{
		{LeaveType: model.LeavePaid, DisplayName: "Paid", Allowance: 12},
		{LeaveType: model.LeaveSick, DisplayName: "Sick", Allowance: 2},
		{LeaveType: model.LeaveUnpaid, DisplayName: "Unpaid", Allowance: 99},
	}
	leaves := []model.LeaveRequest{
		{UserID: "7", Type: model.LeavePaid, Status: model.LeaveApproved, StartDate: at("2024-06-10", 0, 0), EndDate: at("2024-06-12", 0, 0)},
		{UserID: "7", Type: model.LeavePaid, Status: model.LeavePending, StartDate: at("2024-07-01", 0, 0), EndDate: at("2024-07-05", 0, 0)},
		{UserID: "8", Type: model.LeavePaid, Status: model.LeaveApproved, StartDate: at("2024-06-01", 0, 0), EndDate: at("2024-06-30", 0, 0)},
		{UserID: "7", Type: model.LeaveSick, Status: model.LeaveApproved, StartDate: at("2024-03-01", 0, 0), EndDate: at("2024-03-05", 0, 0)},
	}

	first := LeaveBalances(policies, leaves, "7")
	second := LeaveBalances(policies, leaves, "7")
	if len(first) != 2 {
		t.Fatalf("unpaid must be excluded: %+v", first)
	}
	paid := first[0]
	if paid.Remaining != 9 || paid.Taken != 3 {
		t.Fatalf("paid balance = %+v", paid)
	}
	if first[1].Remaining != 0 || first[1].Taken != 5 {
		t.Fatalf("sick balance should clamp at zero: %+v", first[1])
	}
	if TotalLeaveBalance(first) != TotalLeaveBalance(second) || TotalLeaveBalance(first) != 9 {
		t.Fatalf("total = %d / %d", TotalLeaveBalance(first), TotalLeaveBalance(second))
	}
}

func TestInclusiveDays(t *testing.T) {
	if got := InclusiveDays(at("2024-06-10", 0, 0), at("2024-06-12", 0, 0)); got != 3 {
		t.Fatalf("got %d", got)
	}
	if got := InclusiveDays(at("2024-06-10", 0, 0), at("2024-06-10", 0, 0)); got != 1 {
		t.Fatalf("same day should be 1, got %d", got)
	}
	if got := InclusiveDays(at("2024-06-12", 0, 0), at("2024-06-10", 0, 0)); got != 3 {
		t.Fatalf("reversed range should use absolute span, got %d", got)
	}
}

func TestWeeklySeries(t *testing.T) {
	now := at("2024-06-12", 15, 0) // Wednesday
	records := []model.AttendanceRecord{
		{UserID: "7", Date: "2024-06-12", WorkHours: 3.26},
		{UserID: "7", Date: "2024-06-06", WorkHours: 8},
		{UserID: "7", Date: "2024-06-05", WorkHours: 8},
		{UserID: "8", Date: "2024-06-12", WorkHours: 5},
	}
	series := WeeklySeries(records, "7", now)
	if len(series) != 7 {
		t.Fatalf("len = %d", len(series))
	}
	if series[0].Date != "2024-06-06" || series[0].Label != "Thu" || series[0].Hours != 8 {
		t.Fatalf("first = %+v", series[0])
	}
	if last := series[6]; last.Label != "Wed" || last.Hours != 3.3 {
		t.Fatalf("last = %+v", last)
	}
}

func TestEndToEndCheckInCheckOut(t *testing.T) {
	settings := model.Settings{model.SettingShiftStart: "09:00", model.SettingShiftEnd: "18:00", model.SettingRequiredHours: "8"}
	shift := ShiftFromSettings(settings)
	checkIn := at("2024-06-10", 9, 15)

	if Classify(checkIn, shift) != model.AttendanceLate {
		t.Fatalf("09:15 should be late")
	}

	snap := &model.Snapshot{
		Identity: &model.Identity{ID: "7", Name: "Ana"},
		Settings: settings,
		Attendance: []model.AttendanceRecord{
			{ID: "1", UserID: "7", Date: "2024-06-10", CheckIn: checkIn, Status: model.AttendanceLate},
		},
	}
	checkOut := at("2024-06-10", 17, 30)
	d := Compute(snap, checkOut)
	if !d.CheckedIn || !d.EarlyIfCheckOut || d.RemainingTime != "0h 30m" {
		t.Fatalf("dashboard = %+v", d)
	}
	if math.Abs(d.ElapsedHours-8.25) > 1e-9 {
		t.Fatalf("elapsed = %v", d.ElapsedHours)
	}
	if again := Compute(snap, checkOut); !reflect.DeepEqual(again, d) {
		t.Fatalf("compute should be idempotent")
	}
}

func TestInLocation(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	host := time.Date(2024, 6, 10, 3, 45, 0, 0, time.UTC)
	clock := func() time.Time { return host }
	shift := ShiftFromSettings(nil)

	now := InLocation(clock, ist)()
	if now.Location() != ist || now.Hour() != 9 || now.Minute() != 15 {
		t.Fatalf("now = %s", now)
	}
	if Classify(host, shift) != model.AttendancePresent {
		t.Fatalf("03:45 UTC is before a UTC shift start")
	}
	if Classify(now, shift) != model.AttendanceLate {
		t.Fatalf("09:15 in the business zone should be late")
	}
	if !Compute(&model.Snapshot{Identity: &model.Identity{ID: "7"}}, now).LateIfCheckInNow {
		t.Fatalf("dashboard should flag a late check-in")
	}

	if got := InLocation(clock, nil)(); !got.Equal(host) || got.Location() != time.UTC {
		t.Fatalf("nil location should keep the clock, got %s", got)
	}
}
