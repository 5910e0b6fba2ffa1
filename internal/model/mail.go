package model

import "time"

// MailDeliveryStatus 发件箱投递状态
type MailDeliveryStatus string

const (
	MailStatusPending    MailDeliveryStatus = "pending"    // 待处理
	MailStatusProcessing MailDeliveryStatus = "processing" // 处理中
	MailStatusSuccess    MailDeliveryStatus = "success"    // 成功
	MailStatusFailed     MailDeliveryStatus = "failed"     // 失败
)

// MailOrigin 邮件来源
type MailOrigin string

const (
	MailOriginFallback MailOrigin = "dispatch_fallback" // 远端发信失败后的兜底
	MailOriginReport   MailOrigin = "report_summary"
)

// MailDelivery 本地邮件发件箱记录
type MailDelivery struct {
	BaseModel
	ProcessedAt *time.Time         `json:"processed_at,omitempty"`
	MessageID   string             `gorm:"type:varchar(64);uniqueIndex;not null" json:"message_id"`
	Recipient   string             `gorm:"type:varchar(255);not null" json:"recipient"`
	Subject     string             `gorm:"type:varchar(255);not null" json:"subject"`
	Body        string             `gorm:"type:text;not null" json:"body"`
	Origin      MailOrigin         `gorm:"type:varchar(32);not null" json:"origin"`
	Status      MailDeliveryStatus `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	LastError   string             `gorm:"type:varchar(512)" json:"last_error,omitempty"`
	RetryCount  int                `gorm:"not null;default:0" json:"retry_count"`
}

// TableName 指定表名
func (MailDelivery) TableName() string {
	return "mail_deliveries"
}

// MailOutboxMessage 发件箱队列消息
type MailOutboxMessage struct {
	MessageID  string `json:"message_id"`
	DeliveryID int64  `json:"delivery_id"`
}
