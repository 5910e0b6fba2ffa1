package syncer

import (
	"context"
	"sync"
	"testing"
	"time"

	"Attendify/internal/model"
	"Attendify/internal/normalize"
	"Attendify/pkg/errors"
)

type responder func(ctx context.Context, call int) (interface{}, error)

type fakeSource struct {
	mu        sync.Mutex
	calls     map[Collection]int
	responses map[Collection]responder
}

func newFakeSource() *fakeSource {
	return &fakeSource{calls: map[Collection]int{}, responses: map[Collection]responder{}}
}

func (f *fakeSource) on(c Collection, r responder) {
	f.mu.Lock()
	f.responses[c] = r
	f.mu.Unlock()
}

func (f *fakeSource) count(c Collection) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[c]
}

func (f *fakeSource) do(ctx context.Context, c Collection) (interface{}, error) {
	f.mu.Lock()
	f.calls[c]++
	n := f.calls[c]
	r := f.responses[c]
	f.mu.Unlock()
	if r == nil {
		return []interface{}{}, nil
	}
	return r(ctx, n)
}

func (f *fakeSource) AttendanceLogs(ctx context.Context, _ string, _ model.Role) (interface{}, error) {
	return f.do(ctx, CollectionAttendance)
}
func (f *fakeSource) Leaves(ctx context.Context, _ string, _ model.Role) (interface{}, error) {
	return f.do(ctx, CollectionLeaves)
}
func (f *fakeSource) Announcements(ctx context.Context) (interface{}, error) {
	return f.do(ctx, CollectionAnnouncements)
}
func (f *fakeSource) Holidays(ctx context.Context) (interface{}, error) {
	return f.do(ctx, CollectionHolidays)
}
func (f *fakeSource) Notifications(ctx context.Context, _ string) (interface{}, error) {
	return f.do(ctx, CollectionNotifications)
}
func (f *fakeSource) Policies(ctx context.Context) (interface{}, error) {
	return f.do(ctx, CollectionPolicies)
}
func (f *fakeSource) Settings(ctx context.Context) (interface{}, error) {
	return f.do(ctx, CollectionSettings)
}
func (f *fakeSource) Employees(ctx context.Context) (interface{}, error) {
	return f.do(ctx, CollectionEmployees)
}
func (f *fakeSource) Departments(ctx context.Context) (interface{}, error) {
	return f.do(ctx, CollectionDepartments)
}

func rows(records ...map[string]interface{}) []interface{} {
	out := make([]interface{}, 0, len(records))
	for _, r := range records {
		out = append(out, r)
	}
	return out
}

func unreachable() error {
	return &errors.RemoteError{Kind: errors.NetworkUnreachable, Err: context.DeadlineExceeded}
}

var (
	employee = &model.Identity{ID: "7", Name: "Ana", Role: model.RoleEmployee}
	manager  = &model.Identity{ID: "1", Name: "Max", Role: model.RoleManager}
)

func newEngine(src Source) *Engine {
	return New(Options{Source: src, Normalizer: normalize.New(time.UTC)})
}

func TestSyncWithoutIdentityIsNoop(t *testing.T) {
	src := newFakeSource()
	e := newEngine(src)

	delta, err := e.Sync(context.Background(), nil)
	if err != nil || !delta.Skipped {
		t.Fatalf("delta = %+v, err = %v", delta, err)
	}
	for _, c := range []Collection{CollectionAttendance, CollectionSettings} {
		if src.count(c) != 0 {
			t.Fatalf("no request expected for %s", c)
		}
	}
}

func TestDirectoryOnlyForManagers(t *testing.T) {
	src := newFakeSource()
	e := newEngine(src)
	ctx := context.Background()

	if _, err := e.Sync(ctx, employee); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if src.count(CollectionEmployees) != 0 || src.count(CollectionDepartments) != 0 {
		t.Fatalf("employee session must not fetch the directory")
	}
	if src.count(CollectionPolicies) != 1 {
		t.Fatalf("policies should be fetched once")
	}

	delta, err := e.Sync(ctx, manager)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if src.count(CollectionEmployees) != 1 || src.count(CollectionDepartments) != 1 {
		t.Fatalf("manager session should fetch the directory")
	}
	if len(delta.Updated) != 9 {
		t.Fatalf("updated = %v", delta.Updated)
	}
}

func TestSingleNetworkFailureKeepsOtherCollections(t *testing.T) {
	src := newFakeSource()
	src.on(CollectionAttendance, func(context.Context, int) (interface{}, error) {
		return rows(map[string]interface{}{"id": 1, "user_id": 7, "check_in": "2024-06-10 09:00:00"}), nil
	})
	src.on(CollectionHolidays, func(_ context.Context, call int) (interface{}, error) {
		if call == 1 {
			return rows(map[string]interface{}{"id": 3, "name": "Founders", "date": "2024-12-01"}), nil
		}
		return nil, unreachable()
	})
	e := newEngine(src)
	ctx := context.Background()

	first, _ := e.Sync(ctx, employee)
	if first.Offline || e.Offline() {
		t.Fatalf("first sync should be online")
	}

	second, err := e.Sync(ctx, employee)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if !second.Offline || !second.Failed(CollectionHolidays) {
		t.Fatalf("delta = %+v", second)
	}

	snap := e.Snapshot()
	if !snap.Offline {
		t.Fatalf("offline flag should be set")
	}
	if len(snap.Attendance) != 1 || snap.Attendance[0].UserID != "7" {
		t.Fatalf("successful collections must stay populated: %+v", snap.Attendance)
	}
	if len(snap.Holidays) != 1 || snap.Holidays[0].Name != "Founders" {
		t.Fatalf("failed collection should keep previous data: %+v", snap.Holidays)
	}
}

func TestServerErrorIsNotOffline(t *testing.T) {
	src := newFakeSource()
	src.on(CollectionPolicies, func(context.Context, int) (interface{}, error) {
		return nil, &errors.RemoteError{Kind: errors.ServerError, Message: "System Error: 500"}
	})
	e := newEngine(src)

	delta, _ := e.Sync(context.Background(), employee)
	if delta.Offline || e.Offline() {
		t.Fatalf("server errors are not connectivity problems")
	}
	if !delta.Failed(CollectionPolicies) || delta.Failures[0].Kind != errors.ServerError {
		t.Fatalf("failures = %+v", delta.Failures)
	}
}

func TestSupersededSyncNeverOverwritesNewer(t *testing.T) {
	src := newFakeSource()
	started := make(chan struct{})
	release := make(chan struct{})
	src.on(CollectionAttendance, func(_ context.Context, call int) (interface{}, error) {
		if call == 1 {
			close(started)
			// 忽略取消信号，模拟迟到的旧响应
			<-release
			return rows(map[string]interface{}{"id": "stale", "user_id": 7, "check_in": "2024-06-01 09:00:00"}), nil
		}
		return rows(map[string]interface{}{"id": "fresh", "user_id": 7, "check_in": "2024-06-02 09:00:00"}), nil
	})
	e := newEngine(src)
	ctx := context.Background()

	doneA := make(chan *Delta, 1)
	go func() {
		d, _ := e.Sync(ctx, employee)
		doneA <- d
	}()
	<-started

	deltaB, err := e.Sync(ctx, employee)
	if err != nil || deltaB.Cancelled {
		t.Fatalf("sync B: %+v %v", deltaB, err)
	}
	close(release)

	deltaA := <-doneA
	if !deltaA.Cancelled {
		t.Fatalf("superseded sync should report cancellation")
	}

	snap := e.Snapshot()
	if len(snap.Attendance) != 1 || snap.Attendance[0].ID != "fresh" {
		t.Fatalf("state should reflect only the newer sync: %+v", snap.Attendance)
	}
	if snap.Version != 1 {
		t.Fatalf("only one commit expected, version = %d", snap.Version)
	}
}

func TestCancelledSyncDoesNotFlipOffline(t *testing.T) {
	src := newFakeSource()
	started := make(chan struct{})
	src.on(CollectionSettings, func(ctx context.Context, _ int) (interface{}, error) {
		close(started)
		<-ctx.Done()
		return nil, unreachable()
	})
	e := newEngine(src)

	done := make(chan *Delta, 1)
	go func() {
		d, _ := e.Sync(context.Background(), employee)
		done <- d
	}()
	<-started
	e.Cancel()

	d := <-done
	if !d.Cancelled || d.Offline {
		t.Fatalf("delta = %+v", d)
	}
	if e.Offline() || e.Snapshot().Version != 0 {
		t.Fatalf("cancelled sync must not touch state")
	}
}

func TestUserNameFallsBackToIdentity(t *testing.T) {
	src := newFakeSource()
	src.on(CollectionAttendance, func(context.Context, int) (interface{}, error) {
		return rows(
			map[string]interface{}{"id": 1, "user_id": 7, "check_in": "2024-06-10 09:00:00"},
			map[string]interface{}{"id": 2, "user_id": 7, "user_name": "Ana B.", "check_in": "2024-06-11 09:00:00"},
		), nil
	})
	e := newEngine(src)
	_, _ = e.Sync(context.Background(), employee)

	snap := e.Snapshot()
	if snap.Attendance[0].UserName != "Ana" || snap.Attendance[1].UserName != "Ana B." {
		t.Fatalf("names = %q, %q", snap.Attendance[0].UserName, snap.Attendance[1].UserName)
	}
}

func TestIdentitySwitchStartsFresh(t *testing.T) {
	src := newFakeSource()
	src.on(CollectionHolidays, func(_ context.Context, call int) (interface{}, error) {
		if call == 1 {
			return rows(map[string]interface{}{"id": 3, "name": "Founders"}), nil
		}
		return nil, unreachable()
	})
	e := newEngine(src)
	ctx := context.Background()

	_, _ = e.Sync(ctx, employee)
	_, _ = e.Sync(ctx, manager)

	snap := e.Snapshot()
	if snap.Identity.ID != manager.ID {
		t.Fatalf("identity = %+v", snap.Identity)
	}
	if len(snap.Holidays) != 0 {
		t.Fatalf("previous user's data must not leak: %+v", snap.Holidays)
	}
}

func TestOptimisticUpdates(t *testing.T) {
	src := newFakeSource()
	src.on(CollectionNotifications, func(context.Context, int) (interface{}, error) {
		return rows(
			map[string]interface{}{"id": 1, "user_id": 7, "is_read": 0},
			map[string]interface{}{"id": 2, "user_id": "all", "is_read": "0"},
		), nil
	})
	e := newEngine(src)
	ctx := context.Background()
	_, _ = e.Sync(ctx, employee)

	before := e.Snapshot()
	if !e.MarkNotificationRead("1") {
		t.Fatalf("notification 1 should exist")
	}
	if e.MarkNotificationRead("404") {
		t.Fatalf("unknown notification should report false")
	}
	if before.Notifications[0].Read {
		t.Fatalf("earlier snapshots must not change")
	}
	if got := e.Snapshot().UnreadCount(); got != 1 {
		t.Fatalf("unread = %d", got)
	}

	e.SetIdentityAvatar("7", "data:image/png;base64,AAA")
	if e.Snapshot().Identity.Avatar == "" {
		t.Fatalf("avatar not applied")
	}

	e.ClearNotifications()
	if len(e.Snapshot().Notifications) != 0 {
		t.Fatalf("notifications should be cleared")
	}

	// 下一次同步以服务端为准
	_, _ = e.Sync(ctx, employee)
	if got := len(e.Snapshot().Notifications); got != 2 {
		t.Fatalf("sync should take precedence, got %d", got)
	}
}

type memorySnapshots struct {
	mu    sync.Mutex
	saved map[string]*model.Snapshot
}

func (m *memorySnapshots) Save(_ context.Context, s *model.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved[s.Identity.ID] = s.Clone()
	return nil
}

func (m *memorySnapshots) Load(_ context.Context, userID string) (*model.Snapshot, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.saved[userID]
	return s, ok, nil
}

func TestHydrateFromPersistedSnapshot(t *testing.T) {
	store := &memorySnapshots{saved: map[string]*model.Snapshot{}}
	src := newFakeSource()
	src.on(CollectionHolidays, func(context.Context, int) (interface{}, error) {
		return rows(map[string]interface{}{"id": 3, "name": "Founders"}), nil
	})
	first := New(Options{Source: src, Normalizer: normalize.New(time.UTC), Store: store})
	_, _ = first.Sync(context.Background(), employee)

	restarted := New(Options{Source: newFakeSource(), Normalizer: normalize.New(time.UTC), Store: store})
	if !restarted.Hydrate(context.Background(), employee) {
		t.Fatalf("hydrate should succeed")
	}
	if len(restarted.Snapshot().Holidays) != 1 {
		t.Fatalf("persisted data not restored")
	}
	if restarted.Hydrate(context.Background(), manager) {
		t.Fatalf("snapshot of another user must not be restored")
	}

	restarted.Reset()
	if restarted.Snapshot().Identity != nil {
		t.Fatalf("reset should clear identity")
	}
}
