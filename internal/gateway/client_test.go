package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"Attendify/internal/model"
	"Attendify/internal/prefs"
	"Attendify/pkg/errors"
)

type recorded struct {
	method  string
	path    string
	query   string
	csrf    string
	reqID   string
	session string
	body    map[string]interface{}
}

type fakeRemote struct {
	mu   sync.Mutex
	seen []recorded
}

func (f *fakeRemote) record(r *http.Request) recorded {
	rec := recorded{
		method: r.Method,
		path:   r.URL.Path,
		query:  r.URL.RawQuery,
		csrf:   r.Header.Get(HeaderCSRFToken),
		reqID:  r.Header.Get(HeaderRequestID),
	}
	if c, err := r.Cookie("PHPSESSID"); err == nil {
		rec.session = c.Value
	}
	_ = json.NewDecoder(r.Body).Decode(&rec.body)
	f.mu.Lock()
	f.seen = append(f.seen, rec)
	f.mu.Unlock()
	return rec
}

func (f *fakeRemote) last() recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seen[len(f.seen)-1]
}

func newTestClient(t *testing.T, baseURL string, store prefs.Store) *Client {
	t.Helper()
	c, err := New(Options{BaseURL: baseURL, Timeout: 5 * time.Second, Prefs: store})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestLoginStoresCSRFAndReplaysCredentials(t *testing.T) {
	remote := &fakeRemote{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		remote.record(r)
		switch r.URL.Path {
		case "/login.php":
			http.SetCookie(w, &http.Cookie{Name: "PHPSESSID", Value: "sess-1", Path: "/"})
			_, _ = w.Write([]byte(`{"success":true,"user":{"id":7,"name":"Ana"},"csrf_token":"tok-1"}`))
		default:
			_, _ = w.Write([]byte(`[]`))
		}
	}))
	defer srv.Close()

	store := prefs.NewMemoryStore()
	c := newTestClient(t, srv.URL, store)
	ctx := context.Background()

	if _, err := c.Login(ctx, "a@x", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if got := prefs.GetString(ctx, store, prefs.KeyCSRFToken); got != "tok-1" {
		t.Fatalf("csrf token = %q", got)
	}
	if login := remote.last(); login.body["email"] != "a@x" || login.csrf != "" {
		t.Fatalf("login request = %+v", login)
	}

	if _, err := c.AttendanceLogs(ctx, "7", model.RoleEmployee); err != nil {
		t.Fatalf("logs: %v", err)
	}
	get := remote.last()
	if get.csrf != "" {
		t.Fatalf("GET must not carry csrf header")
	}
	if get.session != "sess-1" {
		t.Fatalf("session cookie not replayed: %+v", get)
	}
	if get.reqID == "" {
		t.Fatalf("request id missing")
	}
	if get.query != "role=EMPLOYEE&user_id=7" {
		t.Fatalf("query = %q", get.query)
	}

	if _, err := c.CheckIn(ctx, "7", Fields{"status": "LATE", "action": "hijack"}); err != nil {
		t.Fatalf("check in: %v", err)
	}
	post := remote.last()
	if post.csrf != "tok-1" || post.session != "sess-1" {
		t.Fatalf("mutating request credentials = %+v", post)
	}
	if post.body["action"] != "check_in" || post.body["user_id"] != "7" || post.body["status"] != "LATE" {
		t.Fatalf("check-in body = %+v", post.body)
	}

	// 重启后从偏好存储恢复 cookie
	restarted := newTestClient(t, srv.URL, store)
	if _, err := restarted.Holidays(ctx); err != nil {
		t.Fatalf("holidays: %v", err)
	}
	if remote.last().session != "sess-1" {
		t.Fatalf("cookies should survive a restart")
	}
}

func TestUnauthorizedNotifiesOnce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"Session expired"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, nil)
	var calls int32
	c.SetExpiryNotifier(NotifierFunc(func() { atomic.AddInt32(&calls, 1) }))

	_, err := c.Settings(context.Background())
	if !errors.Is(err, errors.Unauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if err.Error() != "Session expired" {
		t.Fatalf("message = %q", err.Error())
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("notifier called %d times", got)
	}
}

func TestServerErrorMessages(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"server supplied", http.StatusBadRequest, `{"error":"Already checked in today"}`, "Already checked in today"},
		{"message field", http.StatusConflict, `{"message":"Duplicate"}`, "Duplicate"},
		{"html body", http.StatusServiceUnavailable, `<html>down</html>`, "System Error: 503"},
		{"empty body", http.StatusInternalServerError, ``, "System Error: 500"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := newTestClient(t, srv.URL, nil).Policies(context.Background())
			if !errors.Is(err, errors.ServerError) {
				t.Fatalf("expected server error, got %v", err)
			}
			if err.Error() != tc.want {
				t.Fatalf("message = %q, want %q", err.Error(), tc.want)
			}
		})
	}
}

func TestNonJSONSuccessBodyIsEmptyObject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`OK`))
	}))
	defer srv.Close()

	data, err := newTestClient(t, srv.URL, nil).Announcements(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m, ok := data.(map[string]interface{})
	if !ok || len(m) != 0 {
		t.Fatalf("expected empty object, got %#v", data)
	}
}

func TestNumbersDecodeAsJSONNumber(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":12345678901234}]`))
	}))
	defer srv.Close()

	data, err := newTestClient(t, srv.URL, nil).Holidays(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rows := data.([]interface{})
	if _, ok := rows[0].(map[string]interface{})["id"].(json.Number); !ok {
		t.Fatalf("ids should stay json.Number, got %#v", rows[0])
	}
}

func TestTransportFailureIsNetworkUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := newTestClient(t, url, nil).Holidays(context.Background())
	if !errors.Is(err, errors.NetworkUnreachable) {
		t.Fatalf("expected network unreachable, got %v", err)
	}
	if err.Error() != "Network unreachable. Please check your connectivity." {
		t.Fatalf("message = %q", err.Error())
	}
}

func TestCancellationIsDistinguished(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started <- struct{}{}
		<-release
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()
	defer close(release)

	c := newTestClient(t, srv.URL, nil)
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		_, err := c.Leaves(ctx, "7", model.RoleEmployee)
		errCh <- err
	}()

	<-started
	cancel()

	select {
	case err := <-errCh:
		if !errors.IsCancelled(err) {
			t.Fatalf("expected cancelled, got %v", err)
		}
		if errors.Is(err, errors.NetworkUnreachable) {
			t.Fatalf("cancellation must not look like a connectivity problem")
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("cancelled request did not return")
	}
}

func TestAlreadyCancelledContextIssuesNoRequest(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestClient(t, srv.URL, nil).Settings(ctx)
	if !errors.IsCancelled(err) {
		t.Fatalf("expected cancelled, got %v", err)
	}
	if atomic.LoadInt32(&hits) != 0 {
		t.Fatalf("no request should be sent")
	}
}

func TestLogoutClearsCredentialsEvenOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx := context.Background()
	store := prefs.NewMemoryStore()
	_ = store.Set(ctx, prefs.KeyCSRFToken, "tok-1")
	_ = store.Set(ctx, prefs.KeySessionCookies, map[string]string{"PHPSESSID": "sess-1"})

	c := newTestClient(t, srv.URL, store)
	if err := c.Logout(ctx); err == nil {
		t.Fatalf("expected remote failure to surface")
	}
	if prefs.GetString(ctx, store, prefs.KeyCSRFToken) != "" {
		t.Fatalf("csrf token should be cleared")
	}
	var cookies map[string]string
	if ok, _ := store.Get(ctx, prefs.KeySessionCookies, &cookies); ok {
		t.Fatalf("session cookies should be cleared, got %v", cookies)
	}
}

func TestDirectoryQueryDiscriminator(t *testing.T) {
	remote := &fakeRemote{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		remote.record(r)
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, nil)
	ctx := context.Background()

	if _, err := c.DeleteDepartment(ctx, "4"); err != nil {
		t.Fatalf("delete department: %v", err)
	}
	if got := remote.last(); got.method != http.MethodDelete || got.query != "id=4&type=departments" {
		t.Fatalf("delete request = %+v", got)
	}

	if _, err := c.UpdateEmployee(ctx, "9", Fields{"name": "Bo", "department_id": "2"}); err != nil {
		t.Fatalf("update employee: %v", err)
	}
	if got := remote.last(); got.method != http.MethodPut || got.body["id"] != "9" || got.body["name"] != "Bo" {
		t.Fatalf("update request = %+v", got)
	}
}
