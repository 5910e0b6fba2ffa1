package normalize

import (
	"strings"
	"time"

	"Attendify/internal/model"
)

// Normalizer 持有解释无时区时间所用的时区，其余逻辑都是纯函数
type Normalizer struct {
	loc *time.Location
}

func New(loc *time.Location) *Normalizer {
	if loc == nil {
		loc = time.Local
	}
	return &Normalizer{loc: loc}
}

// Location 返回业务时区
func (n *Normalizer) Location() *time.Location {
	return n.loc
}

// Attendance 考勤记录
func (n *Normalizer) Attendance(payload interface{}) []model.AttendanceRecord {
	rows := Records(payload)
	out := make([]model.AttendanceRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, n.attendanceRecord(r))
	}
	return out
}

func (n *Normalizer) attendanceRecord(r Record) model.AttendanceRecord {
	rec := model.AttendanceRecord{
		ID:        ID(r["id"]),
		UserID:    ID(r["user_id"]),
		UserName:  String(r["user_name"]),
		CheckIn:   Time(r["check_in"], n.loc),
		Status:    attendanceStatus(r["status"]),
		WorkHours: Float(r["work_hours"]),
		Device:    String(field(r, "device", "device_info")),
	}
	if rec.WorkHours < 0 {
		rec.WorkHours = 0
	}

	if out := Time(r["check_out"], n.loc); !out.IsZero() {
		rec.CheckOut = &out
	}

	// 日期优先取显式字段，否则取签到当天
	switch {
	case String(r["date"]) != "":
		if d := Date(r["date"], n.loc); !d.IsZero() {
			rec.Date = d.Format(model.DateLayout)
		}
	case !rec.CheckIn.IsZero():
		rec.Date = rec.CheckIn.In(n.loc).Format(model.DateLayout)
	}

	rec.Location = geo(r["lat_in"], r["lng_in"])
	rec.CheckOutLocation = geo(r["lat_out"], r["lng_out"])

	// 早退标记独立于签到时的 LATE/PRESENT 判定；兼容旧数据直接把状态写成 EARLY_LEAVING
	rec.EarlyLeaving = Bool(r["early_leaving"]) || rec.Status == model.AttendanceEarlyLeaving
	return rec
}

func attendanceStatus(v interface{}) model.AttendanceStatus {
	s := upperEnum(v)
	if s == "" {
		return model.AttendancePresent
	}
	return model.AttendanceStatus(s)
}

// geo 经纬度必须同时存在
func geo(lat, lng interface{}) *model.GeoPoint {
	la, ok1 := OptionalFloat(lat)
	lo, ok2 := OptionalFloat(lng)
	if !ok1 || !ok2 {
		return nil
	}
	return &model.GeoPoint{Lat: la, Lng: lo}
}

// Leaves 请假申请
func (n *Normalizer) Leaves(payload interface{}) []model.LeaveRequest {
	rows := Records(payload)
	out := make([]model.LeaveRequest, 0, len(rows))
	for _, r := range rows {
		req := model.LeaveRequest{
			ID:        ID(r["id"]),
			UserID:    ID(r["user_id"]),
			Type:      model.LeaveType(upperEnum(field(r, "type", "leave_type"))),
			StartDate: Date(r["start_date"], n.loc),
			EndDate:   Date(r["end_date"], n.loc),
			Reason:    String(r["reason"]),
			Status:    leaveStatus(r["status"]),
			AppliedOn: Time(field(r, "applied_on", "created_at"), n.loc),
		}
		out = append(out, req)
	}
	return out
}

func leaveStatus(v interface{}) model.LeaveStatus {
	s := upperEnum(v)
	if s == "" {
		return model.LeavePending
	}
	return model.LeaveStatus(s)
}

// Announcements 公告，created_at 映射为 Date
func (n *Normalizer) Announcements(payload interface{}) []model.Announcement {
	rows := Records(payload)
	out := make([]model.Announcement, 0, len(rows))
	for _, r := range rows {
		priority := model.AnnouncementPriority(lowerEnum(r["priority"]))
		if priority == "" {
			priority = model.PriorityInfo
		}
		out = append(out, model.Announcement{
			ID:       ID(r["id"]),
			Title:    String(r["title"]),
			Content:  String(r["content"]),
			Author:   String(field(r, "author", "author_name")),
			Date:     Time(field(r, "created_at", "date"), n.loc),
			Priority: priority,
		})
	}
	return out
}

// Holidays 假日
func (n *Normalizer) Holidays(payload interface{}) []model.Holiday {
	rows := Records(payload)
	out := make([]model.Holiday, 0, len(rows))
	for _, r := range rows {
		typ := model.HolidayType(lowerEnum(r["type"]))
		if typ == "" {
			typ = model.HolidayCompany
		}
		out = append(out, model.Holiday{
			ID:   ID(r["id"]),
			Name: String(r["name"]),
			Date: Date(r["date"], n.loc),
			Type: typ,
		})
	}
	return out
}

// Notifications 通知，is_read 为 0/1
func (n *Normalizer) Notifications(payload interface{}) []model.Notification {
	rows := Records(payload)
	out := make([]model.Notification, 0, len(rows))
	for _, r := range rows {
		typ := model.NotificationType(lowerEnum(r["type"]))
		if typ == "" {
			typ = model.NotifyInfo
		}
		userID := ID(r["user_id"])
		if strings.EqualFold(userID, model.BroadcastRecipient) {
			userID = model.BroadcastRecipient
		}
		out = append(out, model.Notification{
			ID:        ID(r["id"]),
			UserID:    userID,
			Title:     String(r["title"]),
			Message:   String(r["message"]),
			Type:      typ,
			Read:      Bool(field(r, "is_read", "read")),
			Timestamp: Time(field(r, "created_at", "timestamp"), n.loc),
		})
	}
	return out
}

// Employees 员工目录，is_active 缺失视为在职
func (n *Normalizer) Employees(payload interface{}) []model.Employee {
	rows := Records(payload)
	out := make([]model.Employee, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.Employee{
			ID:           ID(r["id"]),
			Name:         String(r["name"]),
			Email:        String(r["email"]),
			Role:         model.ParseRole(String(r["role"])),
			Department:   String(field(r, "department", "department_name")),
			DepartmentID: ID(r["department_id"]),
			Avatar:       String(r["avatar"]),
			IsActive:     BoolOr(field(r, "is_active", "isActive"), true),
		})
	}
	return out
}

// Departments 部门
func (n *Normalizer) Departments(payload interface{}) []model.Department {
	rows := Records(payload)
	out := make([]model.Department, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.Department{
			ID:   ID(r["id"]),
			Name: String(r["name"]),
		})
	}
	return out
}

// Policies 假期额度
func (n *Normalizer) Policies(payload interface{}) []model.LeavePolicy {
	rows := Records(payload)
	out := make([]model.LeavePolicy, 0, len(rows))
	for _, r := range rows {
		lt := model.LeaveType(upperEnum(field(r, "leave_type", "type")))
		name := String(r["display_name"])
		if name == "" {
			name = string(lt)
		}
		allowance := Int(r["allowance"])
		if allowance < 0 {
			allowance = 0
		}
		out = append(out, model.LeavePolicy{
			ID:          ID(r["id"]),
			LeaveType:   lt,
			DisplayName: name,
			Allowance:   allowance,
		})
	}
	return out
}

// Settings 支持 {"key": "value"} 映射，也支持 [{"key":..,"value":..}] 行列表
func (n *Normalizer) Settings(payload interface{}) model.Settings {
	out := model.Settings{}
	if r, ok := payload.(Record); ok {
		if inner, wrapped := r["data"]; wrapped && len(r) == 1 {
			return n.Settings(inner)
		}
		for k, v := range r {
			switch v.(type) {
			case Record, []interface{}:
				continue
			}
			out[k] = String(v)
		}
		return out
	}
	for _, row := range Records(payload) {
		key := String(field(row, "key", "setting_key", "name"))
		if key == "" {
			continue
		}
		out[key] = String(field(row, "value", "setting_value"))
	}
	return out
}

// Identity 登录响应中的用户信息，兼容 {"user": {...}} 包装
func (n *Normalizer) Identity(payload interface{}) (*model.Identity, bool) {
	r, ok := payload.(Record)
	if !ok {
		return nil, false
	}
	if inner, ok := r["user"].(Record); ok {
		r = inner
	}
	id := ID(r["id"])
	if id == "" {
		return nil, false
	}
	return &model.Identity{
		ID:         id,
		Name:       String(r["name"]),
		Email:      String(r["email"]),
		Role:       model.ParseRole(String(r["role"])),
		Department: String(field(r, "department", "department_name")),
		Avatar:     String(r["avatar"]),
		IsActive:   BoolOr(field(r, "is_active", "isActive"), true),
	}, true
}

// EmailLogs 远端邮件日志
func (n *Normalizer) EmailLogs(payload interface{}) []model.EmailLog {
	rows := Records(payload)
	out := make([]model.EmailLog, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.EmailLog{
			ID:        ID(r["id"]),
			Recipient: String(field(r, "recipient", "to", "to_email")),
			Subject:   String(r["subject"]),
			Status:    String(r["status"]),
			SentAt:    Time(field(r, "sent_at", "created_at"), n.loc),
		})
	}
	return out
}
