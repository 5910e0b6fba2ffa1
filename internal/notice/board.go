// Package notice 操作结果的短暂提示，固定时长后自动消失
package notice

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL 提示默认展示 4 秒
const DefaultTTL = 4 * time.Second

type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

type Notice struct {
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	ID        string    `json:"id"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
}

// Board 进程内提示板
type Board struct {
	now   func() time.Time
	mu    sync.Mutex
	items []Notice
	ttl   time.Duration
}

func NewBoard(ttl time.Duration) *Board {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Board{ttl: ttl, now: time.Now}
}

// WithClock 测试中替换时钟
func (b *Board) WithClock(now func() time.Time) *Board {
	b.mu.Lock()
	b.now = now
	b.mu.Unlock()
	return b
}

func (b *Board) Post(level Level, message string) Notice {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.now()
	n := Notice{
		ID:        uuid.NewString(),
		Level:     level,
		Message:   message,
		CreatedAt: now,
		ExpiresAt: now.Add(b.ttl),
	}
	b.pruneLocked(now)
	b.items = append(b.items, n)
	return n
}

func (b *Board) Success(message string) Notice { return b.Post(LevelSuccess, message) }
func (b *Board) Error(message string) Notice   { return b.Post(LevelError, message) }

// Active 尚未过期的提示，按发布顺序
func (b *Board) Active() []Notice {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pruneLocked(b.now())
	return append([]Notice(nil), b.items...)
}

// Latest 最近一条仍有效的提示
func (b *Board) Latest() (Notice, bool) {
	active := b.Active()
	if len(active) == 0 {
		return Notice{}, false
	}
	return active[len(active)-1], true
}

// Dismiss 手动关闭
func (b *Board) Dismiss(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, n := range b.items {
		if n.ID == id {
			b.items = append(b.items[:i:i], b.items[i+1:]...)
			return true
		}
	}
	return false
}

func (b *Board) pruneLocked(now time.Time) {
	kept := b.items[:0]
	for _, n := range b.items {
		if now.Before(n.ExpiresAt) {
			kept = append(kept, n)
		}
	}
	b.items = kept
}
