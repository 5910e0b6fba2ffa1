// Package gateway 远端考勤服务（PHP JSON API）的唯一出入口。
//
// 所有请求都带上会话 cookie；变更类请求附带本地保存的 CSRF 令牌。
// 失败统一归类为 NetworkUnreachable / Unauthorized / ServerError / Cancelled，
// 401 会通知注入的 ExpiryNotifier，由会话控制器决定是否强制登出。
package gateway

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/hertz/pkg/app/client"
	"github.com/cloudwego/hertz/pkg/network/standard"
	"github.com/cloudwego/hertz/pkg/protocol"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"Attendify/internal/prefs"
	"Attendify/pkg/errors"
	"Attendify/pkg/metrics"
)

const (
	HeaderCSRFToken = "X-CSRF-Token"
	HeaderRequestID = "X-Request-Id"

	defaultTimeout = 15 * time.Second
)

// ExpiryNotifier 收到 401 时被调用一次
type ExpiryNotifier interface {
	SessionExpired()
}

// NotifierFunc 函数适配器
type NotifierFunc func()

func (f NotifierFunc) SessionExpired() { f() }

// Fields 请求体字段
type Fields = map[string]interface{}

// Call 描述一次远端调用
type Call struct {
	Method   string
	Endpoint string
	Query    url.Values
	Body     interface{}
}

// Options 客户端配置
type Options struct {
	BaseURL string
	Timeout time.Duration
	Prefs   prefs.Store
	Logger  *zap.Logger
}

// Client 远端服务网关
type Client struct {
	hc      *client.Client
	baseURL string
	timeout time.Duration
	prefs   prefs.Store
	jar     *cookieJar
	logger  *zap.Logger
	tracer  trace.Tracer

	mu       sync.RWMutex
	notifier ExpiryNotifier
}

// New 创建网关客户端。未指定 Prefs 时使用进程内存储
func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, fmt.Errorf("remote base url is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Prefs == nil {
		opts.Prefs = prefs.NewMemoryStore()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	// netpoll 不支持 TLS，统一使用标准库网络层
	hc, err := client.NewClient(
		client.WithDialer(standard.NewDialer()),
		client.WithTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12}),
		client.WithDialTimeout(opts.Timeout),
		client.WithClientReadTimeout(opts.Timeout),
		client.WithWriteTimeout(opts.Timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http client: %w", err)
	}

	return &Client{
		hc:      hc,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		timeout: opts.Timeout,
		prefs:   opts.Prefs,
		jar:     newCookieJar(opts.Prefs, opts.Logger),
		logger:  opts.Logger,
		tracer:  otel.Tracer("attendify/gateway"),
	}, nil
}

// SetExpiryNotifier 会话控制器启动时订阅 401 信号
func (c *Client) SetExpiryNotifier(n ExpiryNotifier) {
	c.mu.Lock()
	c.notifier = n
	c.mu.Unlock()
}

func (c *Client) notifyExpired() {
	c.mu.RLock()
	n := c.notifier
	c.mu.RUnlock()
	if n != nil {
		n.SessionExpired()
	}
}

// Prefs 网关使用的偏好存储
func (c *Client) Prefs() prefs.Store {
	return c.prefs
}

type roundTripResult struct {
	err     error
	body    []byte
	cookies []*sessionCookie
	status  int
}

// Request 执行一次调用并返回解析后的 JSON。
// 非 JSON 响应体按空对象处理
func (c *Client) Request(ctx context.Context, call Call) (interface{}, error) {
	method := strings.ToUpper(call.Method)
	if method == "" {
		method = consts.MethodGet
	}

	if err := ctx.Err(); err != nil {
		return nil, &errors.RemoteError{Kind: errors.Cancelled, Endpoint: call.Endpoint, Err: err}
	}

	var payload []byte
	if call.Body != nil {
		raw, err := json.Marshal(call.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		payload = raw
	}

	uri := c.baseURL + "/" + strings.TrimLeft(call.Endpoint, "/")
	if len(call.Query) > 0 {
		uri += "?" + call.Query.Encode()
	}

	headers := map[string]string{HeaderRequestID: uuid.NewString()}
	if isMutating(method) {
		if token := prefs.GetString(ctx, c.prefs, prefs.KeyCSRFToken); token != "" {
			headers[HeaderCSRFToken] = token
		}
	}
	cookies := c.jar.snapshot(ctx)

	ctx, span := c.tracer.Start(ctx, "gateway "+method+" "+call.Endpoint, trace.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("gateway.endpoint", call.Endpoint),
		attribute.String("http.request_id", headers[HeaderRequestID]),
	))
	defer span.End()

	start := time.Now()
	done := make(chan roundTripResult, 1)
	go func() {
		done <- c.roundTrip(ctx, method, uri, headers, cookies, payload)
	}()

	var res roundTripResult
	select {
	case <-ctx.Done():
		span.SetStatus(codes.Unset, "cancelled")
		c.record(ctx, call.Endpoint, method, "cancelled", start)
		return nil, &errors.RemoteError{Kind: errors.Cancelled, Endpoint: call.Endpoint, Err: ctx.Err()}
	case res = <-done:
	}

	if res.err != nil {
		if ctx.Err() != nil {
			c.record(ctx, call.Endpoint, method, "cancelled", start)
			return nil, &errors.RemoteError{Kind: errors.Cancelled, Endpoint: call.Endpoint, Err: ctx.Err()}
		}
		span.RecordError(res.err)
		span.SetStatus(codes.Error, "network unreachable")
		c.record(ctx, call.Endpoint, method, "unreachable", start)
		c.logger.Warn("Remote service unreachable",
			zap.String("endpoint", call.Endpoint),
			zap.String("method", method),
			zap.Error(res.err),
		)
		return nil, &errors.RemoteError{Kind: errors.NetworkUnreachable, Endpoint: call.Endpoint, Err: res.err}
	}

	c.jar.update(ctx, res.cookies)

	data := decodeBody(res.body)
	span.SetAttributes(attribute.Int("http.status_code", res.status))
	c.record(ctx, call.Endpoint, method, strconv.Itoa(res.status), start)

	if res.status == consts.StatusUnauthorized {
		span.SetStatus(codes.Error, "unauthorized")
		c.logger.Info("Remote session rejected",
			zap.String("endpoint", call.Endpoint),
			zap.String("request_id", headers[HeaderRequestID]),
		)
		c.notifyExpired()
		return nil, &errors.RemoteError{
			Kind:     errors.Unauthorized,
			Endpoint: call.Endpoint,
			Status:   res.status,
			Message:  serverMessage(data, res.status),
		}
	}

	if res.status < 200 || res.status >= 300 {
		span.SetStatus(codes.Error, "server error")
		msg := serverMessage(data, res.status)
		c.logger.Warn("Remote service returned error",
			zap.String("endpoint", call.Endpoint),
			zap.String("method", method),
			zap.Int("status", res.status),
			zap.String("message", msg),
		)
		return nil, &errors.RemoteError{
			Kind:     errors.ServerError,
			Endpoint: call.Endpoint,
			Status:   res.status,
			Message:  msg,
		}
	}

	span.SetStatus(codes.Ok, "")
	return data, nil
}

// roundTrip 独占 request/response 对象，调用方取消后仍会正常释放
func (c *Client) roundTrip(ctx context.Context, method, uri string, headers map[string]string, cookies map[string]string, payload []byte) roundTripResult {
	req := protocol.AcquireRequest()
	resp := protocol.AcquireResponse()
	defer protocol.ReleaseRequest(req)
	defer protocol.ReleaseResponse(resp)

	req.SetRequestURI(uri)
	req.Header.SetMethod(method)
	req.Header.SetContentTypeBytes([]byte(consts.MIMEApplicationJSON))
	req.Header.Set("Accept", consts.MIMEApplicationJSON)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	for k, v := range cookies {
		req.Header.SetCookie(k, v)
	}
	if payload != nil {
		req.SetBody(payload)
	}

	if err := c.hc.DoTimeout(ctx, req, resp, c.timeout); err != nil {
		return roundTripResult{err: err}
	}

	res := roundTripResult{
		status: resp.StatusCode(),
		body:   append([]byte(nil), resp.Body()...),
	}
	resp.Header.VisitAllCookie(func(_, value []byte) {
		if sc, ok := parseSetCookie(value); ok {
			res.cookies = append(res.cookies, sc)
		}
	})
	return res
}

func (c *Client) record(ctx context.Context, endpoint, method, status string, start time.Time) {
	metrics.RecordGatewayRequest(ctx, endpoint, method, status, time.Since(start).Seconds())
}

func isMutating(method string) bool {
	switch method {
	case consts.MethodPost, consts.MethodPut, consts.MethodPatch, consts.MethodDelete:
		return true
	}
	return false
}

// decodeBody 数字保持为 json.Number，交给规范化层统一处理
func decodeBody(body []byte) interface{} {
	empty := map[string]interface{}{}
	if len(bytes.TrimSpace(body)) == 0 {
		return empty
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil || v == nil {
		return empty
	}
	return v
}

func serverMessage(data interface{}, status int) string {
	if m, ok := data.(map[string]interface{}); ok {
		for _, key := range []string{"error", "message"} {
			if s, ok := m[key].(string); ok && strings.TrimSpace(s) != "" {
				return s
			}
		}
	}
	return fmt.Sprintf("System Error: %d", status)
}
