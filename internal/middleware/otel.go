package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/config"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// httpInstruments HTTP 相关指标
type httpInstruments struct {
	requestTotal   metric.Int64Counter
	duration       metric.Float64Histogram
	responseSize   metric.Int64Histogram
	activeRequests metric.Int64UpDownCounter
}

// toValidUTF8 统一清洗用户可控字符串，防止非法 UTF-8 触发指标/trace 序列化失败
func toValidUTF8(val string) string {
	return strings.ToValidUTF8(val, "")
}

// newHTTPInstruments 使用全局 meter；未配置 provider 时为 no-op
func newHTTPInstruments() (*httpInstruments, error) {
	meter := otel.Meter("attendify/http")
	ins := &httpInstruments{}
	var err error

	if ins.requestTotal, err = meter.Int64Counter(
		"http.server.requests.total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, err
	}

	if ins.duration, err = meter.Float64Histogram(
		"http.server.duration",
		metric.WithDescription("HTTP request duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0),
	); err != nil {
		return nil, err
	}

	if ins.responseSize, err = meter.Int64Histogram(
		"http.server.response.size",
		metric.WithDescription("HTTP response size"),
		metric.WithUnit("By"),
	); err != nil {
		return nil, err
	}

	if ins.activeRequests, err = meter.Int64UpDownCounter(
		"http.server.active_requests",
		metric.WithDescription("Number of active HTTP requests"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, err
	}

	return ins, nil
}

// OpenTelemetryMiddleware 请求级 span 与指标。路由模板作为标签，避免 id 撑爆基数
func OpenTelemetryMiddleware() (app.HandlerFunc, error) {
	ins, err := newHTTPInstruments()
	if err != nil {
		return nil, err
	}
	tracer := otel.Tracer("attendify/http")

	return func(ctx context.Context, c *app.RequestContext) {
		startTime := time.Now()
		ins.activeRequests.Add(ctx, 1)
		defer ins.activeRequests.Add(ctx, -1)

		method := toValidUTF8(string(c.Method()))
		route := toValidUTF8(c.FullPath())
		if route == "" {
			route = toValidUTF8(string(c.Path()))
		}

		spanCtx, span := tracer.Start(ctx, method+" "+route, trace.WithAttributes(
			semconv.HTTPMethod(method),
			semconv.HTTPRoute(route),
			attribute.String("http.user_agent", toValidUTF8(string(c.UserAgent()))),
		))
		defer span.End()

		if requestID := c.GetHeader("X-Request-Id"); len(requestID) > 0 {
			span.SetAttributes(attribute.String("http.request_id", toValidUTF8(string(requestID))))
		}

		c.Next(spanCtx)

		if userID, ok := GetUserID(spanCtx, c); ok {
			span.SetAttributes(attribute.String("enduser.id", toValidUTF8(userID)))
		}

		duration := time.Since(startTime).Seconds()
		statusCode := c.Response.StatusCode()
		span.SetAttributes(semconv.HTTPStatusCode(statusCode))

		if statusCode >= 500 {
			span.SetStatus(codes.Error, "HTTP error")
			if lastErr := c.Errors.Last(); lastErr != nil {
				span.RecordError(lastErr)
			}
		}

		labels := metric.WithAttributes(
			semconv.HTTPMethod(method),
			semconv.HTTPRoute(route),
			semconv.HTTPStatusCode(statusCode),
		)
		ins.requestTotal.Add(ctx, 1, labels)
		ins.duration.Record(ctx, duration, labels)
		if responseSize := int64(len(c.Response.Body())); responseSize > 0 {
			ins.responseSize.Record(ctx, responseSize, labels)
		}
	}, nil
}

// NewServerTracerConfig 创建 Hertz Server 的追踪配置
// 返回用于初始化 Hertz server 的配置选项和追踪中间件
func NewServerTracerConfig(opts ...hertztracing.Option) (config.Option, app.HandlerFunc) {
	tracer, cfg := hertztracing.NewServerTracer(opts...)
	return tracer, hertztracing.ServerMiddleware(cfg)
}
