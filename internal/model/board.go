package model

import "time"

// AnnouncementPriority 公告优先级
type AnnouncementPriority string

const (
	PriorityHigh   AnnouncementPriority = "high"
	PriorityMedium AnnouncementPriority = "medium"
	PriorityInfo   AnnouncementPriority = "info"
)

type Announcement struct {
	Date     time.Time            `json:"date"`
	ID       string               `json:"id"`
	Title    string               `json:"title"`
	Content  string               `json:"content"`
	Author   string               `json:"author"`
	Priority AnnouncementPriority `json:"priority"`
}

// HolidayType 假日类别
type HolidayType string

const (
	HolidayNational HolidayType = "national"
	HolidayCompany  HolidayType = "company"
)

type Holiday struct {
	Date time.Time   `json:"date"`
	ID   string      `json:"id"`
	Name string      `json:"name"`
	Type HolidayType `json:"type"`
}

// BroadcastRecipient 表示发给所有用户的通知
const BroadcastRecipient = "all"

// NotificationType 通知级别
type NotificationType string

const (
	NotifyInfo    NotificationType = "info"
	NotifySuccess NotificationType = "success"
	NotifyWarning NotificationType = "warning"
	NotifyError   NotificationType = "error"
)

type Notification struct {
	Timestamp time.Time        `json:"timestamp"`
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Type      NotificationType `json:"type"`
	Read      bool             `json:"read"`
}

// IsBroadcast 是否为全员通知
func (n Notification) IsBroadcast() bool {
	return n.UserID == BroadcastRecipient
}

// EmailLog 远端邮件发送日志
type EmailLog struct {
	SentAt    time.Time `json:"sent_at"`
	ID        string    `json:"id"`
	Recipient string    `json:"recipient"`
	Subject   string    `json:"subject"`
	Status    string    `json:"status"`
}
