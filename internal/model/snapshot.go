package model

import "time"

// Snapshot 同步后的完整应用状态。
// 只有同步引擎写入各集合；乐观更新（通知已读等）也经由引擎完成。
type Snapshot struct {
	SyncedAt      time.Time          `json:"synced_at"`
	Identity      *Identity          `json:"identity,omitempty"`
	Settings      Settings           `json:"settings"`
	Attendance    []AttendanceRecord `json:"attendance"`
	Leaves        []LeaveRequest     `json:"leaves"`
	Announcements []Announcement     `json:"announcements"`
	Holidays      []Holiday          `json:"holidays"`
	Notifications []Notification     `json:"notifications"`
	Employees     []Employee         `json:"employees"`
	Departments   []Department       `json:"departments"`
	Policies      []LeavePolicy      `json:"policies"`
	Version       uint64             `json:"version"`
	Offline       bool               `json:"offline"`
}

// Clone 复制快照，切片重新分配，调用方可以自由修改
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return &Snapshot{}
	}
	c := *s
	c.Identity = s.Identity.Clone()
	c.Settings = s.Settings.Clone()
	c.Attendance = append([]AttendanceRecord(nil), s.Attendance...)
	c.Leaves = append([]LeaveRequest(nil), s.Leaves...)
	c.Announcements = append([]Announcement(nil), s.Announcements...)
	c.Holidays = append([]Holiday(nil), s.Holidays...)
	c.Notifications = append([]Notification(nil), s.Notifications...)
	c.Employees = append([]Employee(nil), s.Employees...)
	c.Departments = append([]Department(nil), s.Departments...)
	c.Policies = append([]LeavePolicy(nil), s.Policies...)
	return &c
}

// UnreadCount 未读通知数
func (s *Snapshot) UnreadCount() int {
	n := 0
	for _, notif := range s.Notifications {
		if !notif.Read {
			n++
		}
	}
	return n
}
