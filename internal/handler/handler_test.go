package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/config"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/cloudwego/hertz/pkg/route"

	"Attendify/internal/derived"
	"Attendify/internal/handler"
	"Attendify/internal/model"
	"Attendify/internal/notice"
	"Attendify/internal/report"
	"Attendify/internal/router"
	"Attendify/internal/syncer"
	"Attendify/pkg/errors"
	"Attendify/pkg/token"
)

type fakeSession struct {
	ident   *model.Identity
	theme   string
	notices *notice.Board
}

func (s *fakeSession) Login(_ context.Context, email, password string) (*model.Identity, error) {
	if password != "secret" {
		return nil, &errors.RemoteError{Kind: errors.ServerError, Message: "Invalid credentials", Status: 400}
	}
	s.ident = &model.Identity{ID: "7", Name: "Ana", Email: email, Role: model.RoleManager, IsActive: true}
	return s.ident.Clone(), nil
}

func (s *fakeSession) Logout(context.Context) error {
	s.ident = nil
	return nil
}

func (s *fakeSession) Current() *model.Identity     { return s.ident.Clone() }
func (s *fakeSession) Theme(context.Context) string { return s.theme }
func (s *fakeSession) Notices() *notice.Board       { return s.notices }
func (s *fakeSession) SetTheme(_ context.Context, theme string) error {
	if theme != "light" && theme != "dark" {
		return errors.Validation("theme", "Theme must be light or dark")
	}
	s.theme = theme
	return nil
}

type fakeState struct {
	snap  *model.Snapshot
	syncs int
}

func (f *fakeState) Snapshot() *model.Snapshot { return f.snap.Clone() }
func (f *fakeState) Offline() bool             { return f.snap.Offline }
func (f *fakeState) Sync(context.Context, *model.Identity) (*syncer.Delta, error) {
	f.syncs++
	return &syncer.Delta{SyncID: "1", Offline: f.snap.Offline}, nil
}

type fixedDashboard struct{ d derived.Dashboard }

func (f fixedDashboard) Latest() derived.Dashboard { return f.d }

var now = time.Date(2024, 6, 12, 10, 0, 0, 0, time.UTC)

type env struct {
	engine  *route.Engine
	session *fakeSession
	state   *fakeState
	tokens  *token.Generator
}

func newEnv(t *testing.T, extra ...app.HandlerFunc) *env {
	t.Helper()
	tokens, err := token.New("handler-test", 15*time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	checkIn := time.Date(2024, 6, 10, 9, 15, 0, 0, time.UTC)
	state := &fakeState{snap: &model.Snapshot{
		Offline: true,
		Attendance: []model.AttendanceRecord{
			{ID: "1", UserID: "7", UserName: "Ana", Date: "2024-06-10", CheckIn: checkIn, Status: model.AttendanceLate, WorkHours: 8.25},
		},
	}}
	session := &fakeSession{theme: "light", notices: notice.NewBoard(notice.DefaultTTL)}
	reports := report.NewService(report.Options{
		Source:   state,
		Location: time.UTC,
		Now:      func() time.Time { return now },
	})

	h := handler.New(handler.Options{
		Session:    session,
		State:      state,
		Dashboards: fixedDashboard{d: derived.Dashboard{AttendanceRate: 5, Offline: true}},
		Reports:    reports,
		Tokens:     tokens,
	})

	engine := route.NewEngine(config.NewOptions([]config.Option{}))
	if len(extra) > 0 {
		engine.Use(extra...)
	}
	router.Register(engine, h, router.Middlewares{})
	return &env{engine: engine, session: session, state: state, tokens: tokens}
}

func (e *env) do(method, url, body string) *ut.ResponseRecorder {
	var b *ut.Body
	if body != "" {
		b = &ut.Body{Body: bytes.NewBufferString(body), Len: len(body)}
	}
	return ut.PerformRequest(e.engine, method, url, b, ut.Header{Key: "Content-Type", Value: "application/json"})
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error struct {
		Code    string                 `json:"code"`
		Message string                 `json:"message"`
		Details map[string]interface{} `json:"details"`
	} `json:"error"`
}

func decode(t *testing.T, w *ut.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Result().Body(), &env); err != nil {
		t.Fatalf("decode %q: %v", w.Result().Body(), err)
	}
	return env
}

func TestLoginIssuesTokens(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodPost, "/v1/auth/login", `{"email":"a@x","password":"secret"}`)
	if w.Result().StatusCode() != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Result().StatusCode(), w.Result().Body())
	}
	var res handler.LoginResponse
	if err := json.Unmarshal(decode(t, w).Data, &res); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	if res.User.ID != "7" || res.Tokens.AccessToken == "" {
		t.Fatalf("login = %+v", res)
	}

	w = e.do(http.MethodPost, "/v1/auth/token/refresh", `{"refresh_token":"`+res.Tokens.RefreshToken+`"}`)
	if w.Result().StatusCode() != http.StatusOK {
		t.Fatalf("refresh status = %d body=%s", w.Result().StatusCode(), w.Result().Body())
	}
	w = e.do(http.MethodPost, "/v1/auth/token/refresh", `{"refresh_token":"`+res.Tokens.AccessToken+`"}`)
	if w.Result().StatusCode() != http.StatusUnauthorized {
		t.Fatalf("access token must not refresh, status = %d", w.Result().StatusCode())
	}
}

func TestLoginFailures(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodPost, "/v1/auth/login", `{"email":"a@x","password":"nope"}`)
	if w.Result().StatusCode() != http.StatusBadGateway {
		t.Fatalf("status = %d", w.Result().StatusCode())
	}
	if got := decode(t, w).Error.Message; got != "Invalid credentials" {
		t.Fatalf("message = %q", got)
	}

	w = e.do(http.MethodPost, "/v1/auth/login", `{"email":`)
	if w.Result().StatusCode() != http.StatusBadRequest {
		t.Fatalf("malformed body status = %d", w.Result().StatusCode())
	}
}

func TestStateRequiresSession(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodGet, "/v1/state", "")
	if w.Result().StatusCode() != http.StatusUnauthorized {
		t.Fatalf("status = %d", w.Result().StatusCode())
	}
	if decode(t, w).Error.Code != errors.NotAuthenticated.Code {
		t.Fatalf("unexpected error code")
	}

	e.session.ident = &model.Identity{ID: "7", Name: "Ana", Role: model.RoleEmployee}
	w = e.do(http.MethodGet, "/v1/state", "")
	if w.Result().StatusCode() != http.StatusOK {
		t.Fatalf("status = %d", w.Result().StatusCode())
	}
	var state handler.StateResponse
	_ = json.Unmarshal(decode(t, w).Data, &state)
	if !state.Offline || len(state.Snapshot.Attendance) != 1 {
		t.Fatalf("state = %+v", state)
	}

	w = e.do(http.MethodPost, "/v1/state/sync", "")
	if w.Result().StatusCode() != http.StatusOK || e.state.syncs != 1 {
		t.Fatalf("resync status = %d syncs = %d", w.Result().StatusCode(), e.state.syncs)
	}
}

func TestTokenMustMatchSession(t *testing.T) {
	e := newEnv(t, func(ctx context.Context, c *app.RequestContext) {
		c.Set(token.IdentityKey, "99")
		c.Next(ctx)
	})
	e.session.ident = &model.Identity{ID: "7"}

	if w := e.do(http.MethodGet, "/v1/dashboard", ""); w.Result().StatusCode() != http.StatusUnauthorized {
		t.Fatalf("status = %d", w.Result().StatusCode())
	}
}

func TestDashboardAndNotices(t *testing.T) {
	e := newEnv(t)
	e.session.ident = &model.Identity{ID: "7"}
	posted := e.session.notices.Success("Clocked in successfully.")

	w := e.do(http.MethodGet, "/v1/dashboard", "")
	var d derived.Dashboard
	_ = json.Unmarshal(decode(t, w).Data, &d)
	if d.AttendanceRate != 5 || !d.Offline {
		t.Fatalf("dashboard = %+v", d)
	}

	w = e.do(http.MethodGet, "/v1/notices", "")
	var notices []notice.Notice
	_ = json.Unmarshal(decode(t, w).Data, &notices)
	if len(notices) != 1 || notices[0].Message != "Clocked in successfully." {
		t.Fatalf("notices = %+v", notices)
	}

	if w := e.do(http.MethodDelete, "/v1/notices/"+posted.ID, ""); w.Result().StatusCode() != http.StatusNoContent {
		t.Fatalf("dismiss status = %d", w.Result().StatusCode())
	}
	if w := e.do(http.MethodDelete, "/v1/notices/"+posted.ID, ""); w.Result().StatusCode() != http.StatusNotFound {
		t.Fatalf("second dismiss status = %d", w.Result().StatusCode())
	}
}

func TestTheme(t *testing.T) {
	e := newEnv(t)

	if w := e.do(http.MethodPut, "/v1/preferences/theme", `{"theme":"neon"}`); w.Result().StatusCode() != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Result().StatusCode())
	}
	w := e.do(http.MethodPut, "/v1/preferences/theme", `{"theme":"dark"}`)
	if w.Result().StatusCode() != http.StatusOK || e.session.theme != "dark" {
		t.Fatalf("status = %d theme = %s", w.Result().StatusCode(), e.session.theme)
	}
}

func TestReportExport(t *testing.T) {
	e := newEnv(t)
	e.session.ident = &model.Identity{ID: "7"}

	w := e.do(http.MethodGet, "/v1/reports?range=7d", "")
	var rep report.Report
	_ = json.Unmarshal(decode(t, w).Data, &rep)
	if rep.Summary.Records != 1 || rep.Summary.LateIssues != 1 {
		t.Fatalf("report = %+v", rep.Summary)
	}

	w = e.do(http.MethodGet, "/v1/reports/export?range=7d&format=csv", "")
	if w.Result().StatusCode() != http.StatusOK {
		t.Fatalf("export status = %d", w.Result().StatusCode())
	}
	disposition := string(w.Result().Header.Peek("Content-Disposition"))
	if !strings.Contains(disposition, "Attendify_Report_7d_2024-06-12.csv") {
		t.Fatalf("disposition = %q", disposition)
	}
	if !strings.HasPrefix(string(w.Result().Header.ContentType()), "text/csv") {
		t.Fatalf("content type = %q", w.Result().Header.ContentType())
	}
	if !strings.Contains(string(w.Result().Body()), "Ana") {
		t.Fatalf("csv body = %q", w.Result().Body())
	}

	if w := e.do(http.MethodGet, "/v1/reports/export?format=pdf", ""); w.Result().StatusCode() != http.StatusBadRequest {
		t.Fatalf("unsupported format status = %d", w.Result().StatusCode())
	}
	if w := e.do(http.MethodGet, "/v1/reports?range=1y", ""); w.Result().StatusCode() != http.StatusBadRequest {
		t.Fatalf("bad range status = %d", w.Result().StatusCode())
	}
}
