package model

import "time"

// DateLayout 日历日期格式
const DateLayout = "2006-01-02"

// AttendanceStatus 考勤状态
type AttendanceStatus string

const (
	AttendancePresent      AttendanceStatus = "PRESENT"
	AttendanceAbsent       AttendanceStatus = "ABSENT"
	AttendanceHalfDay      AttendanceStatus = "HALF_DAY"
	AttendanceLate         AttendanceStatus = "LATE"
	AttendanceOnLeave      AttendanceStatus = "ON_LEAVE"
	AttendanceEarlyLeaving AttendanceStatus = "EARLY_LEAVING"
)

// GeoPoint 经纬度
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// AttendanceRecord 一次签到/签退记录。
// CheckOut 为空表示该用户当前仍在岗（open session）。
type AttendanceRecord struct {
	CheckIn          time.Time        `json:"check_in"`
	CheckOut         *time.Time       `json:"check_out,omitempty"`
	Location         *GeoPoint        `json:"location,omitempty"`
	CheckOutLocation *GeoPoint        `json:"check_out_location,omitempty"`
	ID               string           `json:"id"`
	UserID           string           `json:"user_id"`
	UserName         string           `json:"user_name,omitempty"`
	Date             string           `json:"date"`
	Status           AttendanceStatus `json:"status"`
	Device           string           `json:"device,omitempty"`
	WorkHours        float64          `json:"work_hours"`
	EarlyLeaving     bool             `json:"early_leaving"`
}

// IsOpen 尚未签退
func (r AttendanceRecord) IsOpen() bool {
	return r.CheckOut == nil
}
