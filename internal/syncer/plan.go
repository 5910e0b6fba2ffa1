package syncer

import (
	"context"

	"Attendify/internal/model"
	"Attendify/pkg/errors"
)

// Collection 业务集合
type Collection string

const (
	CollectionAttendance    Collection = "attendance"
	CollectionLeaves        Collection = "leaves"
	CollectionAnnouncements Collection = "announcements"
	CollectionHolidays      Collection = "holidays"
	CollectionNotifications Collection = "notifications"
	CollectionPolicies      Collection = "policies"
	CollectionSettings      Collection = "settings"
	CollectionEmployees     Collection = "employees"
	CollectionDepartments   Collection = "departments"
)

// Failure 单个集合的失败
type Failure struct {
	Err        error             `json:"-"`
	Collection Collection        `json:"collection"`
	Kind       errors.Definition `json:"kind"`
}

// Delta 一次同步调用的结果
type Delta struct {
	SyncID    string       `json:"sync_id"`
	Updated   []Collection `json:"updated"`
	Failures  []Failure    `json:"failures,omitempty"`
	Version   uint64       `json:"version"`
	Offline   bool         `json:"offline"`
	Cancelled bool         `json:"cancelled"`
	Skipped   bool         `json:"skipped"`
}

// Failed 某个集合是否失败
func (d *Delta) Failed(c Collection) bool {
	for _, f := range d.Failures {
		if f.Collection == c {
			return true
		}
	}
	return false
}

type fetch struct {
	run        func(ctx context.Context) (interface{}, error)
	collection Collection
}

// plan 员工角色不拉取目录
func (e *Engine) plan(ident *model.Identity) []fetch {
	fetches := []fetch{
		{collection: CollectionAttendance, run: func(ctx context.Context) (interface{}, error) {
			return e.src.AttendanceLogs(ctx, ident.ID, ident.Role)
		}},
		{collection: CollectionLeaves, run: func(ctx context.Context) (interface{}, error) {
			return e.src.Leaves(ctx, ident.ID, ident.Role)
		}},
		{collection: CollectionAnnouncements, run: e.src.Announcements},
		{collection: CollectionHolidays, run: e.src.Holidays},
		{collection: CollectionNotifications, run: func(ctx context.Context) (interface{}, error) {
			return e.src.Notifications(ctx, ident.ID)
		}},
		{collection: CollectionPolicies, run: e.src.Policies},
		{collection: CollectionSettings, run: e.src.Settings},
	}
	if ident.Role.CanManage() {
		fetches = append(fetches,
			fetch{collection: CollectionEmployees, run: e.src.Employees},
			fetch{collection: CollectionDepartments, run: e.src.Departments},
		)
	}
	return fetches
}
