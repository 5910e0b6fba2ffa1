package cache

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"Attendify/internal/model"
	"Attendify/pkg/errors"
)

const (
	snapshotPrefix = "snapshot"
	settingsPrefix = "settings"
	latestSettings = "latest"

	// SnapshotTTL 离线快照保留时间
	SnapshotTTL = 7 * 24 * time.Hour
)

// SnapshotCache 按用户保存最近一次同步结果，重启后先展示缓存再刷新。
// 同时单独保存最新的系统设置，供邮件 worker 读取 SMTP 中继配置。
type SnapshotCache struct {
	snapshots *ProtectedCache
	settings  *ProtectedCache
}

func NewSnapshotCache(client goredis.UniversalClient, prefix string, breaker *CircuitBreaker) *SnapshotCache {
	return &SnapshotCache{
		snapshots: NewProtectedCache(client, prefix, snapshotPrefix, SnapshotTTL, breaker),
		settings:  NewProtectedCache(client, prefix, settingsPrefix, 0, breaker),
	}
}

// Save 没有身份的快照不保存
func (c *SnapshotCache) Save(ctx context.Context, snap *model.Snapshot) error {
	if snap == nil || snap.Identity == nil || snap.Identity.ID == "" {
		return nil
	}
	if err := c.snapshots.Set(ctx, snap.Identity.ID, snap); err != nil {
		return err
	}
	if len(snap.Settings) > 0 {
		return c.settings.Set(ctx, latestSettings, snap.Settings)
	}
	return nil
}

// Load 读取某用户的快照
func (c *SnapshotCache) Load(ctx context.Context, userID string) (*model.Snapshot, bool, error) {
	var snap model.Snapshot
	ok, err := c.snapshots.Get(ctx, userID, &snap)
	if err != nil || !ok || snap.Identity == nil {
		return nil, false, err
	}
	return &snap, true, nil
}

// Settings 最近一次同步到的系统设置
func (c *SnapshotCache) Settings(ctx context.Context) (model.Settings, error) {
	var s model.Settings
	ok, err := c.settings.Get(ctx, latestSettings, &s)
	if err != nil {
		return nil, err
	}
	if !ok || len(s) == 0 {
		return nil, fmt.Errorf("settings not cached yet: %w", errors.NotFound)
	}
	return s, nil
}

// Relay SMTP 中继配置，未配置主机时返回 NotFound
func (c *SnapshotCache) Relay(ctx context.Context) (model.SMTP, error) {
	s, err := c.Settings(ctx)
	if err != nil {
		return model.SMTP{}, err
	}
	relay := s.SMTP()
	if !relay.Configured() {
		return model.SMTP{}, fmt.Errorf("smtp relay: %w", errors.NotFound)
	}
	return relay, nil
}
