// Package logger 进程级 zap 日志，同时接管 hertz 的 hlog 输出
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	hertzzap "github.com/hertz-contrib/logger/zap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	Logger   = zap.NewNop()
	logClose io.Closer
)

// Options 由 config 填充；每条日志都带上 service 和 component
type Options struct {
	Service     string
	Component   string
	Environment string
	Level       string
	Format      string // json, text
	OutputPath  string // stdout 或文件路径
}

func (o Options) text() bool {
	if strings.EqualFold(o.Format, "json") {
		return false
	}
	return o.Environment == "development" || strings.EqualFold(o.Format, "text")
}

// New 构建 hertz zap logger；输出到文件时返回的 Closer 非空
func New(opts Options) (*hertzzap.Logger, io.Closer, error) {
	ws, closer, err := buildWriteSyncer(opts.OutputPath)
	if err != nil {
		return nil, nil, err
	}

	level := zap.NewAtomicLevelAt(parseZapLevel(opts.Level))
	fields := []zap.Field{zap.String("service", opts.Service)}
	if opts.Component != "" {
		fields = append(fields, zap.String("component", opts.Component))
	}

	hz := hertzzap.NewLogger(
		hertzzap.WithCoreEnc(buildEncoder(opts.text())),
		hertzzap.WithCoreWs(ws),
		hertzzap.WithCoreLevel(level),
		hertzzap.WithZapOptions(
			zap.AddCaller(),
			zap.AddStacktrace(zapcore.ErrorLevel),
			zap.Fields(fields...),
		),
	)
	return hz, closer, nil
}

// Init 设置全局 Logger 和 hlog
func Init(opts Options) error {
	hz, closer, err := New(opts)
	if err != nil {
		return err
	}
	hlog.SetLogger(hz)
	hlog.SetLevel(toHlogLevel(parseZapLevel(opts.Level)))

	Logger = hz.Logger()
	logClose = closer
	Logger.Info("Logger initialized successfully",
		zap.String("level", strings.ToUpper(opts.Level)),
		zap.String("format", opts.Format),
		zap.String("environment", opts.Environment),
	)
	return nil
}

func Sync() {
	_ = Logger.Sync()
	if logClose != nil {
		_ = logClose.Close()
	}
}

func buildEncoder(text bool) zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	if text {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zapcore.NewConsoleEncoder(encoderConfig)
	}
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewJSONEncoder(encoderConfig)
}

func buildWriteSyncer(path string) (zapcore.WriteSyncer, io.Closer, error) {
	if path == "" || strings.EqualFold(path, "stdout") {
		return zapcore.AddSync(os.Stdout), nil, nil
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return zapcore.AddSync(file), file, nil
}

func parseZapLevel(level string) zapcore.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return zapcore.DebugLevel
	case "WARN":
		return zapcore.WarnLevel
	case "ERROR":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func toHlogLevel(level zapcore.Level) hlog.Level {
	switch level {
	case zapcore.DebugLevel:
		return hlog.LevelDebug
	case zapcore.WarnLevel:
		return hlog.LevelWarn
	case zapcore.ErrorLevel:
		return hlog.LevelError
	default:
		return hlog.LevelInfo
	}
}
