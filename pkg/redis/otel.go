// Package redis go-redis 的 OpenTelemetry Hook
package redis

import (
	"context"
	stderrors "errors"
	"net"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// maxKeys span 上最多记录的键数量
const maxKeys = 5

// TracingHook Redis 追踪 Hook
type TracingHook struct {
	tracer   trace.Tracer
	commands metric.Int64Counter
	duration metric.Float64Histogram
	hits     metric.Int64Counter
	misses   metric.Int64Counter
	attrs    []attribute.KeyValue
}

// NewTracingHook 指标从全局 MeterProvider 创建，未初始化时为 no-op
func NewTracingHook(serviceName string, db int) *TracingHook {
	meter := otel.Meter(serviceName + ".redis")
	commands, _ := meter.Int64Counter("redis.commands.total",
		metric.WithDescription("Total number of Redis commands"),
		metric.WithUnit("{command}"),
	)
	duration, _ := meter.Float64Histogram("redis.command.duration",
		metric.WithDescription("Redis command duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5),
	)
	hits, _ := meter.Int64Counter("redis.cache.hits",
		metric.WithDescription("Number of cache hits"),
		metric.WithUnit("{hit}"),
	)
	misses, _ := meter.Int64Counter("redis.cache.misses",
		metric.WithDescription("Number of cache misses"),
		metric.WithUnit("{miss}"),
	)
	return &TracingHook{
		tracer:   otel.Tracer(serviceName + ".redis"),
		commands: commands,
		duration: duration,
		hits:     hits,
		misses:   misses,
		attrs: []attribute.KeyValue{
			semconv.DBSystemRedis,
			semconv.DBRedisDBIndex(db),
			attribute.String("service.name", serviceName),
		},
	}
}

// DialHook 实现 redis.Hook 接口
func (th *TracingHook) DialHook(next goredis.DialHook) goredis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

// ProcessHook 实现 redis.Hook 接口
func (th *TracingHook) ProcessHook(next goredis.ProcessHook) goredis.ProcessHook {
	return func(ctx context.Context, cmd goredis.Cmder) error {
		ctx, span := th.tracer.Start(ctx, "redis."+cmd.Name(),
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(th.attrs...),
		)
		defer span.End()

		span.SetAttributes(semconv.DBOperation(cmd.Name()))
		if keys := ExtractKeys(cmd.Args()); len(keys) > 0 {
			span.SetAttributes(attribute.StringSlice("redis.keys", keys))
		}

		start := time.Now()
		err := next(ctx, cmd)
		status := commandStatus(span, err)

		labels := metric.WithAttributes(
			attribute.String("redis.command", cmd.Name()),
			attribute.String("redis.status", status),
		)
		th.commands.Add(ctx, 1, labels)
		th.duration.Record(ctx, time.Since(start).Seconds(), labels)

		if cmd.Name() == "get" || cmd.Name() == "mget" {
			switch status {
			case "not_found":
				th.misses.Add(ctx, 1)
			case "success":
				th.hits.Add(ctx, 1)
			}
		}
		return err
	}
}

// ProcessPipelineHook 实现 redis.Hook 接口
func (th *TracingHook) ProcessPipelineHook(next goredis.ProcessPipelineHook) goredis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []goredis.Cmder) error {
		ctx, span := th.tracer.Start(ctx, "redis.pipeline",
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(th.attrs...),
		)
		defer span.End()

		names := make([]string, 0, len(cmds))
		for _, cmd := range cmds {
			names = append(names, cmd.Name())
		}
		span.SetAttributes(
			attribute.Int("redis.pipeline.count", len(cmds)),
			attribute.String("redis.pipeline.commands", strings.Join(names, ";")),
		)

		err := next(ctx, cmds)
		status := commandStatus(span, err)
		th.commands.Add(ctx, 1, metric.WithAttributes(
			attribute.String("redis.command", "pipeline"),
			attribute.String("redis.status", status),
		))
		return err
	}
}

func commandStatus(span trace.Span, err error) string {
	switch {
	case err == nil:
		span.SetStatus(codes.Ok, "")
		return "success"
	case stderrors.Is(err, goredis.Nil):
		span.SetStatus(codes.Ok, "Key not found")
		return "not_found"
	default:
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		return "error"
	}
}

// ExtractKeys 提取命令中的键名，跳过命令名本身
func ExtractKeys(args []interface{}) []string {
	keys := make([]string, 0, maxKeys)
	for i := 1; i < len(args) && len(keys) < maxKeys; i++ {
		if key, ok := args[i].(string); ok {
			keys = append(keys, SanitizeKey(key))
		}
	}
	return keys
}

// SanitizeKey 会话、令牌等键只保留首段
func SanitizeKey(key string) string {
	lower := strings.ToLower(key)
	for _, marker := range []string{"token", "password", "secret", "session", "cookie"} {
		if strings.Contains(lower, marker) {
			if i := strings.Index(key, ":"); i > 0 {
				return key[:i] + ":***"
			}
			return "***"
		}
	}
	if len(key) > 100 {
		return key[:100] + "..."
	}
	return key
}
