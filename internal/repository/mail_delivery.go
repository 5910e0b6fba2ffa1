// Package repository 发件箱的持久化访问
package repository

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"Attendify/internal/model"
	"Attendify/pkg/errors"
)

// lastErrorLimit 与 last_error 列宽一致
const lastErrorLimit = 512

// MailDeliveryRepository 邮件投递记录
type MailDeliveryRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewMailDeliveryRepository(db *gorm.DB) *MailDeliveryRepository {
	return &MailDeliveryRepository{db: db, now: time.Now}
}

// Create 写入一条待发送记录
func (r *MailDeliveryRepository) Create(ctx context.Context, d *model.MailDelivery) error {
	if d.Status == "" {
		d.Status = model.MailStatusPending
	}
	if err := r.db.WithContext(ctx).Create(d).Error; err != nil {
		return fmt.Errorf("create mail delivery: %w", err)
	}
	return nil
}

func (r *MailDeliveryRepository) GetByID(ctx context.Context, id int64) (*model.MailDelivery, error) {
	var d model.MailDelivery
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&d).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("mail delivery %d: %w", id, errors.NotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get mail delivery: %w", err)
	}
	return &d, nil
}

// MarkProcessing 只有 pending 状态可以进入处理，返回是否抢到
func (r *MailDeliveryRepository) MarkProcessing(ctx context.Context, id int64) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.MailDelivery{}).
		Where("id = ? AND status = ?", id, model.MailStatusPending).
		Update("status", model.MailStatusProcessing)
	if res.Error != nil {
		return false, fmt.Errorf("mark mail delivery processing: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *MailDeliveryRepository) MarkSuccess(ctx context.Context, id int64) error {
	now := r.now()
	err := r.db.WithContext(ctx).Model(&model.MailDelivery{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       model.MailStatusSuccess,
			"processed_at": &now,
			"last_error":   "",
		}).Error
	if err != nil {
		return fmt.Errorf("mark mail delivery success: %w", err)
	}
	return nil
}

// MarkFailure 记录一次失败；重试次数达到上限后置为 failed，否则回到 pending
func (r *MailDeliveryRepository) MarkFailure(ctx context.Context, id int64, cause error, maxRetries int) (model.MailDeliveryStatus, error) {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	if len(msg) > lastErrorLimit {
		msg = msg[:lastErrorLimit]
	}

	var status model.MailDeliveryStatus
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var d model.MailDelivery
		if err := tx.Where("id = ?", id).First(&d).Error; err != nil {
			return err
		}
		retries := d.RetryCount + 1
		status = model.MailStatusPending
		updates := map[string]interface{}{
			"retry_count": retries,
			"last_error":  msg,
		}
		if retries >= maxRetries {
			now := r.now()
			status = model.MailStatusFailed
			updates["processed_at"] = &now
		}
		updates["status"] = status
		return tx.Model(&model.MailDelivery{}).Where("id = ?", id).Updates(updates).Error
	})
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("mail delivery %d: %w", id, errors.NotFound)
	}
	if err != nil {
		return "", fmt.Errorf("mark mail delivery failure: %w", err)
	}
	return status, nil
}

// List 按创建时间倒序分页，status 为空时不过滤
func (r *MailDeliveryRepository) List(ctx context.Context, status model.MailDeliveryStatus, limit, offset int) ([]model.MailDelivery, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := r.db.WithContext(ctx).Model(&model.MailDelivery{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []model.MailDelivery
	if err := q.Order("id DESC").Limit(limit).Offset(offset).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list mail deliveries: %w", err)
	}
	return out, nil
}

// Reclaim 把停留在 processing 超过 olderThan 的记录放回 pending。
// 不刷新 updated_at，同一轮的 Stale 可以直接取到
func (r *MailDeliveryRepository) Reclaim(ctx context.Context, olderThan time.Duration) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.MailDelivery{}).
		Where("status = ? AND updated_at < ?", model.MailStatusProcessing, r.now().Add(-olderThan)).
		UpdateColumn("status", model.MailStatusPending)
	if res.Error != nil {
		return 0, fmt.Errorf("reclaim mail deliveries: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Stale 长时间停留在 pending 的记录，用于补发
func (r *MailDeliveryRepository) Stale(ctx context.Context, olderThan time.Duration, limit int) ([]model.MailDelivery, error) {
	var out []model.MailDelivery
	err := r.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", model.MailStatusPending, r.now().Add(-olderThan)).
		Order("id ASC").Limit(limit).Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list stale mail deliveries: %w", err)
	}
	return out, nil
}
