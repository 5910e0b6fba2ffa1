package middleware

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"Attendify/pkg/errors"
	"Attendify/pkg/response"
)

// RecoverConfig recover 中间件配置
type RecoverConfig struct {
	Logger *zap.Logger
	// 生产环境不返回 panic 详情
	IsProduction bool
	// 堆栈最多记录的帧数
	MaxFrames int
}

// RecoverMiddleware 创建 recover 中间件
func RecoverMiddleware(cfg RecoverConfig) app.HandlerFunc {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.MaxFrames <= 0 {
		cfg.MaxFrames = 32
	}
	return func(ctx context.Context, c *app.RequestContext) {
		defer func() {
			if err := recover(); err != nil {
				handlePanic(ctx, c, err, cfg)
			}
		}()

		c.Next(ctx)
	}
}

func handlePanic(ctx context.Context, c *app.RequestContext, err interface{}, cfg RecoverConfig) {
	stack := stackTrace(cfg.MaxFrames)

	fields := []zap.Field{
		zap.String("panic", fmt.Sprintf("%v", err)),
		zap.String("path", string(c.Path())),
		zap.String("method", string(c.Method())),
		zap.String("client_ip", c.ClientIP()),
		zap.String("stack", stack),
	}
	if requestID := string(c.GetHeader("X-Request-Id")); requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}
	if userID, exists := GetUserID(ctx, c); exists {
		fields = append(fields, zap.String("user_id", userID))
	}
	cfg.Logger.Error("[PANIC RECOVERED]", fields...)

	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.RecordError(fmt.Errorf("panic: %v", err))
		span.SetStatus(codes.Error, "panic recovered")
	}

	def := errors.Definition{Code: "INTERNAL_SERVER_ERROR", Message: "Internal server error"}
	var details map[string]interface{}
	if !cfg.IsProduction {
		def.Message = fmt.Sprintf("Internal error: %v", err)
		details = map[string]interface{}{"stack": stack}
	}
	response.ErrorWithDetails(ctx, c, def, details)
	c.Abort()
}

// stackTrace 当前 goroutine 的调用栈，跳过 runtime 帧
func stackTrace(maxFrames int) string {
	pcs := make([]uintptr, maxFrames)
	n := runtime.Callers(4, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	var b strings.Builder
	for {
		frame, more := frames.Next()
		if !strings.HasPrefix(frame.Function, "runtime.") {
			fmt.Fprintf(&b, "%s\n\t%s:%d\n", frame.Function, frame.File, frame.Line)
		}
		if !more {
			break
		}
	}
	return b.String()
}
