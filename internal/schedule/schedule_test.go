package schedule

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"Attendify/internal/model"
	"Attendify/internal/syncer"
)

type staticSource struct {
	mu   sync.Mutex
	snap *model.Snapshot
}

func (s *staticSource) Snapshot() *model.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.Clone()
}

func openSession(now time.Time) *model.Snapshot {
	checkIn := time.Date(now.Year(), now.Month(), now.Day(), 9, 15, 0, 0, time.UTC)
	return &model.Snapshot{
		Identity: &model.Identity{ID: "7", Role: model.RoleEmployee},
		Attendance: []model.AttendanceRecord{
			{ID: "1", UserID: "7", Date: checkIn.Format(model.DateLayout), CheckIn: checkIn, Status: model.AttendanceLate},
		},
	}
}

func TestTickerRecomputesWithClock(t *testing.T) {
	now := time.Date(2024, 6, 12, 17, 30, 0, 0, time.UTC)
	tk := NewTicker(&staticSource{snap: openSession(now)}, 5*time.Second, nil).
		WithClock(func() time.Time { return now })

	if tk.Interval() != MaxTickInterval {
		t.Fatalf("interval should be clamped, got %s", tk.Interval())
	}

	d := tk.Tick()
	if !d.CheckedIn || d.RemainingTime != "0h 30m" || !d.EarlyIfCheckOut {
		t.Fatalf("dashboard = %+v", d)
	}

	now = now.Add(time.Hour)
	d = tk.Latest()
	if d.RemainingTime != "0h 30m" {
		t.Fatalf("latest should be the published value until the next tick")
	}
	d = tk.Tick()
	if !d.TargetReached || d.RemainingTime != "" {
		t.Fatalf("after shift end = %+v", d)
	}
	if tk.Ticks() != 2 {
		t.Fatalf("ticks = %d", tk.Ticks())
	}
}

func TestTickerUsesBusinessTimezone(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	checkIn := time.Date(2024, 6, 10, 9, 15, 0, 0, ist)
	snap := &model.Snapshot{
		Identity: &model.Identity{ID: "7", Role: model.RoleEmployee},
		Attendance: []model.AttendanceRecord{
			{ID: "1", UserID: "7", Date: "2024-06-10", CheckIn: checkIn, Status: model.AttendanceLate},
		},
	}
	// 主机时钟 12:00 UTC，业务时区是 17:30
	host := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	tk := NewTicker(&staticSource{snap: snap}, time.Second, nil).
		WithClock(func() time.Time { return host }).
		WithLocation(ist)

	d := tk.Tick()
	if d.Now.Location() != ist {
		t.Fatalf("now should be in the business zone, got %s", d.Now.Location())
	}
	if !d.CheckedIn || !d.EarlyIfCheckOut || d.RemainingTime != "0h 30m" {
		t.Fatalf("dashboard = %+v", d)
	}

	// 20:00 UTC 已经是业务时区的第二天
	host = time.Date(2024, 6, 10, 20, 0, 0, 0, time.UTC)
	d = tk.Tick()
	if got := d.Weekly[len(d.Weekly)-1].Date; got != "2024-06-11" {
		t.Fatalf("today = %s", got)
	}
}

func TestTickerRunStopsOnCancel(t *testing.T) {
	tk := NewTicker(&staticSource{snap: &model.Snapshot{}}, 10*time.Millisecond, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		tk.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for tk.Ticks() < 3 {
		select {
		case <-deadline:
			t.Fatalf("ticker did not tick, ticks = %d", tk.Ticks())
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("run did not return after cancel")
	}
}

type countingSyncer struct{ calls int32 }

func (c *countingSyncer) Sync(context.Context, *model.Identity) (*syncer.Delta, error) {
	atomic.AddInt32(&c.calls, 1)
	return &syncer.Delta{}, nil
}

type identityBox struct{ ident atomic.Pointer[model.Identity] }

func (b *identityBox) Current() *model.Identity { return b.ident.Load() }

func TestResyncRequiresIdentity(t *testing.T) {
	eng := &countingSyncer{}
	box := &identityBox{}
	if ResyncOnce(context.Background(), eng, box, zap.NewNop()) {
		t.Fatalf("no identity, no sync")
	}
	box.ident.Store(&model.Identity{ID: "7"})
	if !ResyncOnce(context.Background(), eng, box, zap.NewNop()) {
		t.Fatalf("expected a sync")
	}
	if atomic.LoadInt32(&eng.calls) != 1 {
		t.Fatalf("calls = %d", eng.calls)
	}
}

func TestRunResyncLoop(t *testing.T) {
	eng := &countingSyncer{}
	box := &identityBox{}
	box.ident.Store(&model.Identity{ID: "7"})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go RunResyncLoop(ctx, eng, box, 10*time.Millisecond, nil)

	deadline := time.After(2 * time.Second)
	for atomic.LoadInt32(&eng.calls) < 2 {
		select {
		case <-deadline:
			t.Fatalf("resync loop did not run")
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
}
