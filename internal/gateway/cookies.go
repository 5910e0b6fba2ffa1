package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/cloudwego/hertz/pkg/protocol"
	"go.uber.org/zap"

	"Attendify/internal/prefs"
)

// sessionCookie Set-Cookie 中关心的部分
type sessionCookie struct {
	expires time.Time
	name    string
	value   string
	maxAge  int
}

func (s *sessionCookie) expired(now time.Time) bool {
	if s.value == "" || s.maxAge < 0 {
		return true
	}
	return !s.expires.IsZero() && !s.expires.After(now)
}

func parseSetCookie(raw []byte) (*sessionCookie, bool) {
	c := protocol.AcquireCookie()
	defer protocol.ReleaseCookie(c)
	if err := c.ParseBytes(raw); err != nil {
		return nil, false
	}
	if len(c.Key()) == 0 {
		return nil, false
	}
	return &sessionCookie{
		name:    string(c.Key()),
		value:   string(c.Value()),
		expires: c.Expire(),
		maxAge:  c.MaxAge(),
	}, true
}

// cookieJar 远端会话 cookie（PHPSESSID 等），持久化到偏好存储
type cookieJar struct {
	store  prefs.Store
	logger *zap.Logger

	mu      sync.Mutex
	loaded  bool
	cookies map[string]string
}

func newCookieJar(store prefs.Store, logger *zap.Logger) *cookieJar {
	return &cookieJar{store: store, logger: logger, cookies: map[string]string{}}
}

// loadLocked 首次使用时从偏好存储恢复
func (j *cookieJar) loadLocked(ctx context.Context) {
	if j.loaded {
		return
	}
	j.loaded = true
	saved := map[string]string{}
	ok, err := j.store.Get(ctx, prefs.KeySessionCookies, &saved)
	if err != nil {
		j.logger.Warn("Failed to restore session cookies", zap.Error(err))
		return
	}
	if ok {
		j.cookies = saved
	}
}

func (j *cookieJar) snapshot(ctx context.Context) map[string]string {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.loadLocked(ctx)
	out := make(map[string]string, len(j.cookies))
	for k, v := range j.cookies {
		out[k] = v
	}
	return out
}

func (j *cookieJar) update(ctx context.Context, set []*sessionCookie) {
	if len(set) == 0 {
		return
	}
	now := time.Now()

	j.mu.Lock()
	defer j.mu.Unlock()
	j.loadLocked(ctx)
	for _, c := range set {
		if c.expired(now) {
			delete(j.cookies, c.name)
			continue
		}
		j.cookies[c.name] = c.value
	}
	j.persistLocked(ctx)
}

func (j *cookieJar) clear(ctx context.Context) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.loaded = true
	j.cookies = map[string]string{}
	if err := j.store.Delete(ctx, prefs.KeySessionCookies); err != nil {
		j.logger.Warn("Failed to clear session cookies", zap.Error(err))
	}
}

func (j *cookieJar) persistLocked(ctx context.Context) {
	if err := j.store.Set(ctx, prefs.KeySessionCookies, j.cookies); err != nil {
		j.logger.Warn("Failed to persist session cookies", zap.Error(err))
	}
}
