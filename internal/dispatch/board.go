package dispatch

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"Attendify/internal/gateway"
	"Attendify/internal/model"
	"Attendify/pkg/errors"
)

// AnnouncementInput 公告表单
type AnnouncementInput struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Priority string `json:"priority"`
}

// PostAnnouncement 发布公告，作者为当前用户
func (d *Dispatcher) PostAnnouncement(ctx context.Context, in AnnouncementInput) error {
	ident, err := d.identity()
	if err != nil {
		return err
	}
	if strings.TrimSpace(in.Title) == "" {
		return errors.Validation("title", "Title is required")
	}
	priority := model.AnnouncementPriority(strings.ToLower(strings.TrimSpace(in.Priority)))
	switch priority {
	case model.PriorityHigh, model.PriorityMedium, model.PriorityInfo:
	case "":
		priority = model.PriorityInfo
	default:
		return errors.Validation("priority", "Priority must be high, medium or info")
	}
	fields := gateway.Fields{
		"title":     strings.TrimSpace(in.Title),
		"content":   in.Content,
		"author_id": ident.ID,
		"priority":  string(priority),
	}
	return d.run(ctx, "post_announcement", prefixError, func(ctx context.Context) error {
		_, err := d.gw.PostAnnouncement(ctx, fields)
		return err
	}, message("Announcement posted."))
}

// HolidayInput 假日表单
type HolidayInput struct {
	Name string `json:"name"`
	Date string `json:"date"`
	Type string `json:"type"`
}

// AddHoliday 新增假日
func (d *Dispatcher) AddHoliday(ctx context.Context, in HolidayInput) error {
	if _, err := d.identity(); err != nil {
		return err
	}
	if strings.TrimSpace(in.Name) == "" {
		return errors.Validation("name", "Holiday name is required")
	}
	if _, err := time.Parse(model.DateLayout, strings.TrimSpace(in.Date)); err != nil {
		return errors.Validation("date", "Date must be YYYY-MM-DD")
	}
	typ := model.HolidayType(strings.ToLower(strings.TrimSpace(in.Type)))
	if typ != model.HolidayNational && typ != model.HolidayCompany {
		typ = model.HolidayCompany
	}
	fields := gateway.Fields{
		"name": strings.TrimSpace(in.Name),
		"date": strings.TrimSpace(in.Date),
		"type": string(typ),
	}
	return d.run(ctx, "add_holiday", prefixError, func(ctx context.Context) error {
		_, err := d.gw.AddHoliday(ctx, fields)
		return err
	}, message("Holiday added."))
}

// DeleteHoliday 删除假日
func (d *Dispatcher) DeleteHoliday(ctx context.Context, id string) error {
	if _, err := d.identity(); err != nil {
		return err
	}
	return d.run(ctx, "delete_holiday", prefixError, func(ctx context.Context) error {
		_, err := d.gw.DeleteHoliday(ctx, id)
		return err
	}, message("Holiday removed."))
}

// NotificationInput 通知表单，UserID 为 "all" 表示全员
type NotificationInput struct {
	UserID  string `json:"user_id"`
	Title   string `json:"title"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

// SendNotification 发送站内通知
func (d *Dispatcher) SendNotification(ctx context.Context, in NotificationInput) error {
	if _, err := d.identity(); err != nil {
		return err
	}
	if strings.TrimSpace(in.Title) == "" {
		return errors.Validation("title", "Title is required")
	}
	recipient := strings.TrimSpace(in.UserID)
	if recipient == "" {
		recipient = model.BroadcastRecipient
	}
	typ := model.NotificationType(strings.ToLower(strings.TrimSpace(in.Type)))
	switch typ {
	case model.NotifyInfo, model.NotifySuccess, model.NotifyWarning, model.NotifyError:
	default:
		typ = model.NotifyInfo
	}
	fields := gateway.Fields{
		"user_id": recipient,
		"title":   strings.TrimSpace(in.Title),
		"message": in.Message,
		"type":    string(typ),
	}
	return d.run(ctx, "send_notification", prefixError, func(ctx context.Context) error {
		_, err := d.gw.PostNotification(ctx, fields)
		return err
	}, message("Notification dispatched."))
}

// MarkNotificationRead 远端确认后本地乐观置为已读，不重新同步也不提示
func (d *Dispatcher) MarkNotificationRead(ctx context.Context, id string) error {
	if _, err := d.identity(); err != nil {
		return err
	}
	if _, err := d.gw.MarkNotificationRead(ctx, id); err != nil {
		if !errors.IsCancelled(err) {
			d.logger.Warn("Mark notification read failed", zap.String("notification_id", id), zap.Error(err))
		}
		return err
	}
	d.engine.MarkNotificationRead(id)
	return nil
}

// ClearNotifications 清空当前用户的通知
func (d *Dispatcher) ClearNotifications(ctx context.Context) error {
	ident, err := d.identity()
	if err != nil {
		return err
	}
	if _, err := d.gw.ClearNotifications(ctx, ident.ID); err != nil {
		if !errors.IsCancelled(err) {
			d.logger.Warn("Clear notifications failed", zap.String("user_id", ident.ID), zap.Error(err))
		}
		return err
	}
	d.engine.ClearNotifications()
	return nil
}
