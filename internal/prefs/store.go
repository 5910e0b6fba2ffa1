// Package prefs 本地偏好存储：会话身份、主题、CSRF 令牌、会话 cookie。
// 值以 JSON 形式保存，跨进程重启保留。
package prefs

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// 固定的偏好键
const (
	KeyCurrentUser    = "current_user"
	KeyTheme          = "theme"
	KeyCSRFToken      = "csrf_token"
	KeySessionCookies = "session_cookies"
)

// Theme 界面主题
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// Store 简单的键值存储能力
type Store interface {
	// Get 读取并反序列化到 dest，键不存在返回 false
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}) error
	Delete(ctx context.Context, key string) error
}

// MemoryStore 进程内实现，用于测试和未配置 Redis 的场景
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (m *MemoryStore) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	m.mu.RLock()
	raw, ok := m.data[key]
	m.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal preference %s: %w", key, err)
	}
	return true, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal preference %s: %w", key, err)
	}
	m.mu.Lock()
	m.data[key] = raw
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}

// GetString 读取字符串偏好，缺失或出错时返回空串
func GetString(ctx context.Context, s Store, key string) string {
	var v string
	if ok, err := s.Get(ctx, key, &v); err != nil || !ok {
		return ""
	}
	return v
}

// Theme 读取主题，默认浅色
func Theme(ctx context.Context, s Store) string {
	if GetString(ctx, s, KeyTheme) == ThemeDark {
		return ThemeDark
	}
	return ThemeLight
}

// SetTheme 只接受 light / dark
func SetTheme(ctx context.Context, s Store, theme string) error {
	if theme != ThemeLight && theme != ThemeDark {
		return fmt.Errorf("unknown theme %q", theme)
	}
	return s.Set(ctx, KeyTheme, theme)
}
