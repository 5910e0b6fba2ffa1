package notice

import (
	"testing"
	"time"
)

func TestNoticesExpireAfterTTL(t *testing.T) {
	now := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	b := NewBoard(DefaultTTL).WithClock(func() time.Time { return now })

	first := b.Success("Clocked in successfully.")
	now = now.Add(2 * time.Second)
	b.Error("Sync Error: boom")

	if got := len(b.Active()); got != 2 {
		t.Fatalf("active = %d", got)
	}

	now = now.Add(2 * time.Second)
	active := b.Active()
	if len(active) != 1 || active[0].Message != "Sync Error: boom" {
		t.Fatalf("first notice should have expired: %+v", active)
	}
	if b.Dismiss(first.ID) {
		t.Fatalf("expired notice cannot be dismissed")
	}

	latest, ok := b.Latest()
	if !ok || latest.Level != LevelError {
		t.Fatalf("latest = %+v", latest)
	}
	if !b.Dismiss(latest.ID) {
		t.Fatalf("dismiss should succeed")
	}
	if _, ok := b.Latest(); ok {
		t.Fatalf("board should be empty")
	}
}
