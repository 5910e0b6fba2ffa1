package gateway

import (
	"context"
	"net/url"

	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"go.uber.org/zap"

	"Attendify/internal/model"
	"Attendify/internal/prefs"
)

// 远端脚本
const (
	EndpointLogin         = "login.php"
	EndpointLogout        = "logout.php"
	EndpointAttendance    = "attendance.php"
	EndpointLeaves        = "leaves.php"
	EndpointDirectory     = "directory.php"
	EndpointAnnouncements = "announcements.php"
	EndpointHolidays      = "holidays.php"
	EndpointNotifications = "notifications.php"
	EndpointPolicies      = "policies.php"
	EndpointSettings      = "settings.php"
	EndpointEmail         = "email.php"
	EndpointProfile       = "profile.php"
)

const (
	directoryEmployees   = "employees"
	directoryDepartments = "departments"
)

func (c *Client) get(ctx context.Context, endpoint string, query url.Values) (interface{}, error) {
	return c.Request(ctx, Call{Method: consts.MethodGet, Endpoint: endpoint, Query: query})
}

func (c *Client) send(ctx context.Context, method, endpoint string, query url.Values, body interface{}) (interface{}, error) {
	return c.Request(ctx, Call{Method: method, Endpoint: endpoint, Query: query, Body: body})
}

func merge(base Fields, extra Fields) Fields {
	out := make(Fields, len(base)+len(extra))
	for k, v := range extra {
		out[k] = v
	}
	// 判别字段不允许被覆盖
	for k, v := range base {
		out[k] = v
	}
	return out
}

// ---- 认证 ----

// Login 成功后保存服务端下发的 CSRF 令牌
func (c *Client) Login(ctx context.Context, email, password string) (interface{}, error) {
	data, err := c.send(ctx, consts.MethodPost, EndpointLogin, nil, Fields{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}
	if m, ok := data.(map[string]interface{}); ok {
		if token, ok := m["csrf_token"].(string); ok && token != "" {
			if err := c.prefs.Set(ctx, prefs.KeyCSRFToken, token); err != nil {
				c.logger.Warn("Failed to store csrf token", zap.Error(err))
			}
		}
	}
	return data, nil
}

// Logout 无论远端结果如何都清除本地 CSRF 令牌和会话 cookie
func (c *Client) Logout(ctx context.Context) error {
	defer c.clearCredentials(context.WithoutCancel(ctx))
	_, err := c.send(ctx, consts.MethodPost, EndpointLogout, nil, nil)
	return err
}

func (c *Client) clearCredentials(ctx context.Context) {
	if err := c.prefs.Delete(ctx, prefs.KeyCSRFToken); err != nil {
		c.logger.Warn("Failed to clear csrf token", zap.Error(err))
	}
	c.jar.clear(ctx)
}

// ---- 考勤 ----

func (c *Client) AttendanceLogs(ctx context.Context, userID string, role model.Role) (interface{}, error) {
	return c.get(ctx, EndpointAttendance, url.Values{"user_id": {userID}, "role": {string(role)}})
}

// CheckIn fields 通常包含 status、device、lat、lng
func (c *Client) CheckIn(ctx context.Context, userID string, fields Fields) (interface{}, error) {
	return c.send(ctx, consts.MethodPost, EndpointAttendance, nil,
		merge(Fields{"action": "check_in", "user_id": userID}, fields))
}

func (c *Client) CheckOut(ctx context.Context, userID string, fields Fields) (interface{}, error) {
	return c.send(ctx, consts.MethodPost, EndpointAttendance, nil,
		merge(Fields{"action": "check_out", "user_id": userID}, fields))
}

// ---- 请假 ----

func (c *Client) Leaves(ctx context.Context, userID string, role model.Role) (interface{}, error) {
	return c.get(ctx, EndpointLeaves, url.Values{"user_id": {userID}, "role": {string(role)}})
}

func (c *Client) SubmitLeave(ctx context.Context, fields Fields) (interface{}, error) {
	return c.send(ctx, consts.MethodPost, EndpointLeaves, nil, fields)
}

func (c *Client) UpdateLeaveStatus(ctx context.Context, id string, status model.LeaveStatus) (interface{}, error) {
	return c.send(ctx, consts.MethodPatch, EndpointLeaves, nil, Fields{"id": id, "status": string(status)})
}

// ---- 目录 ----

func (c *Client) Employees(ctx context.Context) (interface{}, error) {
	return c.get(ctx, EndpointDirectory, url.Values{"type": {directoryEmployees}})
}

func (c *Client) Departments(ctx context.Context) (interface{}, error) {
	return c.get(ctx, EndpointDirectory, url.Values{"type": {directoryDepartments}})
}

func (c *Client) AddEmployee(ctx context.Context, fields Fields) (interface{}, error) {
	return c.send(ctx, consts.MethodPost, EndpointDirectory, url.Values{"type": {directoryEmployees}}, fields)
}

func (c *Client) UpdateEmployee(ctx context.Context, id string, fields Fields) (interface{}, error) {
	return c.send(ctx, consts.MethodPut, EndpointDirectory, url.Values{"type": {directoryEmployees}},
		merge(Fields{"id": id}, fields))
}

func (c *Client) DeleteEmployee(ctx context.Context, id string) (interface{}, error) {
	return c.send(ctx, consts.MethodDelete, EndpointDirectory, url.Values{"type": {directoryEmployees}, "id": {id}}, nil)
}

func (c *Client) AddDepartment(ctx context.Context, name string) (interface{}, error) {
	return c.send(ctx, consts.MethodPost, EndpointDirectory, url.Values{"type": {directoryDepartments}}, Fields{"name": name})
}

func (c *Client) UpdateDepartment(ctx context.Context, id, name string) (interface{}, error) {
	return c.send(ctx, consts.MethodPut, EndpointDirectory, url.Values{"type": {directoryDepartments}},
		Fields{"id": id, "name": name})
}

func (c *Client) DeleteDepartment(ctx context.Context, id string) (interface{}, error) {
	return c.send(ctx, consts.MethodDelete, EndpointDirectory, url.Values{"type": {directoryDepartments}, "id": {id}}, nil)
}

// ---- 公告 / 假日 ----

func (c *Client) Announcements(ctx context.Context) (interface{}, error) {
	return c.get(ctx, EndpointAnnouncements, nil)
}

func (c *Client) PostAnnouncement(ctx context.Context, fields Fields) (interface{}, error) {
	return c.send(ctx, consts.MethodPost, EndpointAnnouncements, nil, fields)
}

func (c *Client) Holidays(ctx context.Context) (interface{}, error) {
	return c.get(ctx, EndpointHolidays, nil)
}

func (c *Client) AddHoliday(ctx context.Context, fields Fields) (interface{}, error) {
	return c.send(ctx, consts.MethodPost, EndpointHolidays, nil, fields)
}

func (c *Client) DeleteHoliday(ctx context.Context, id string) (interface{}, error) {
	return c.send(ctx, consts.MethodDelete, EndpointHolidays, url.Values{"id": {id}}, nil)
}

// ---- 通知 ----

func (c *Client) Notifications(ctx context.Context, userID string) (interface{}, error) {
	return c.get(ctx, EndpointNotifications, url.Values{"user_id": {userID}})
}

func (c *Client) PostNotification(ctx context.Context, fields Fields) (interface{}, error) {
	return c.send(ctx, consts.MethodPost, EndpointNotifications, nil, fields)
}

func (c *Client) MarkNotificationRead(ctx context.Context, id string) (interface{}, error) {
	return c.send(ctx, consts.MethodPatch, EndpointNotifications, nil, Fields{"id": id})
}

func (c *Client) ClearNotifications(ctx context.Context, userID string) (interface{}, error) {
	return c.send(ctx, consts.MethodDelete, EndpointNotifications, url.Values{"user_id": {userID}}, nil)
}

// ---- 假期额度 / 系统设置 ----

func (c *Client) Policies(ctx context.Context) (interface{}, error) {
	return c.get(ctx, EndpointPolicies, nil)
}

func (c *Client) UpdatePolicy(ctx context.Context, fields Fields) (interface{}, error) {
	return c.send(ctx, consts.MethodPatch, EndpointPolicies, nil, fields)
}

func (c *Client) Settings(ctx context.Context) (interface{}, error) {
	return c.get(ctx, EndpointSettings, nil)
}

func (c *Client) UpdateSetting(ctx context.Context, key, value string) (interface{}, error) {
	return c.send(ctx, consts.MethodPatch, EndpointSettings, nil, Fields{"key": key, "value": value})
}

// ---- 邮件 ----

func (c *Client) SendEmail(ctx context.Context, to, subject, body string) (interface{}, error) {
	return c.send(ctx, consts.MethodPost, EndpointEmail, nil, Fields{"to": to, "subject": subject, "body": body})
}

func (c *Client) EmailLogs(ctx context.Context) (interface{}, error) {
	return c.get(ctx, EndpointEmail, nil)
}

// ---- 个人资料 ----

// UpdatePassword fields 包含 user_id、current_password、new_password
func (c *Client) UpdatePassword(ctx context.Context, fields Fields) (interface{}, error) {
	return c.send(ctx, consts.MethodPost, EndpointProfile, nil, merge(Fields{"action": "update_password"}, fields))
}

func (c *Client) UpdateAvatar(ctx context.Context, userID, avatar string) (interface{}, error) {
	return c.send(ctx, consts.MethodPost, EndpointProfile, nil, Fields{
		"action":  "update_avatar",
		"user_id": userID,
		"avatar":  avatar,
	})
}
