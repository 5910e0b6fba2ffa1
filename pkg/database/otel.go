// Package database GORM 的 OpenTelemetry 插件
package database

import (
	"context"
	stderrors "errors"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

const (
	startTimeKey = "otel:start_time"
	spanKey      = "otel:span"
)

var sensitiveSQL = regexp.MustCompile(`(?i)(password|token|secret|body)\s*=\s*'[^']*'`)

// PluginConfig 插件配置
type PluginConfig struct {
	ServiceName  string
	System       attribute.KeyValue
	MaxSQLLength int
}

// DefaultPluginConfig 默认插件配置
func DefaultPluginConfig(serviceName string) PluginConfig {
	return PluginConfig{
		ServiceName:  serviceName,
		System:       semconv.DBSystemPostgreSQL,
		MaxSQLLength: 500,
	}
}

// OTELPlugin GORM OpenTelemetry 插件，每条语句一个 span，并记录查询次数与耗时
type OTELPlugin struct {
	tracer   trace.Tracer
	queries  metric.Int64Counter
	duration metric.Float64Histogram
	config   PluginConfig
}

// NewOTELPlugin 指标从全局 MeterProvider 创建，未初始化时为 no-op
func NewOTELPlugin(config PluginConfig) *OTELPlugin {
	if config.ServiceName == "" {
		config.ServiceName = "attendify"
	}
	if config.MaxSQLLength <= 0 {
		config.MaxSQLLength = 500
	}
	if !config.System.Valid() {
		config.System = semconv.DBSystemPostgreSQL
	}

	meter := otel.Meter(config.ServiceName + ".gorm")
	queries, _ := meter.Int64Counter(
		"db.queries.total",
		metric.WithDescription("Total number of database queries"),
		metric.WithUnit("{query}"),
	)
	duration, _ := meter.Float64Histogram(
		"db.query.duration",
		metric.WithDescription("Database query duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0),
	)

	return &OTELPlugin{
		tracer:   otel.Tracer(config.ServiceName + ".gorm"),
		queries:  queries,
		duration: duration,
		config:   config,
	}
}

// Name 实现 gorm.Plugin 接口
func (p *OTELPlugin) Name() string {
	return "otel_plugin"
}

// Initialize 注册回调
func (p *OTELPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	steps := []struct {
		name     string
		register func(string, func(*gorm.DB)) error
		after    func(string, func(*gorm.DB)) error
	}{
		{"query", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"create", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"update", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"delete", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
		{"row", cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register},
		{"raw", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register},
	}
	for _, s := range steps {
		if err := s.register("otel:before_"+s.name, p.before); err != nil {
			return err
		}
		if err := s.after("otel:after_"+s.name, p.after); err != nil {
			return err
		}
	}
	return nil
}

func (p *OTELPlugin) before(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := p.tracer.Start(ctx, "db."+tableName(db),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(p.config.System, attribute.String("service.name", p.config.ServiceName)),
	)
	db.InstanceSet(startTimeKey, time.Now())
	db.InstanceSet(spanKey, span)
	db.Statement.Context = ctx
}

func (p *OTELPlugin) after(db *gorm.DB) {
	v, ok := db.InstanceGet(spanKey)
	if !ok {
		return
	}
	span, ok := v.(trace.Span)
	if !ok {
		return
	}
	defer span.End()

	var seconds float64
	if st, ok := db.InstanceGet(startTimeKey); ok {
		if start, ok := st.(time.Time); ok {
			seconds = time.Since(start).Seconds()
		}
	}

	operation := OperationName(db.Statement.SQL.String())
	span.SetName(operation)
	span.SetAttributes(
		semconv.DBStatement(p.Sanitize(db.Statement.SQL.String())),
		semconv.DBOperation(operation),
		attribute.String("db.table", tableName(db)),
		attribute.Int64("db.rows_affected", db.Statement.RowsAffected),
	)

	status := "success"
	switch {
	case db.Error == nil:
		span.SetStatus(codes.Ok, "")
	case stderrors.Is(db.Error, gorm.ErrRecordNotFound):
		status = "not_found"
		span.SetStatus(codes.Ok, "Record not found")
	default:
		status = "error"
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}

	labels := metric.WithAttributes(
		attribute.String("db.operation", operation),
		attribute.String("db.status", status),
	)
	ctx := db.Statement.Context
	p.queries.Add(ctx, 1, labels)
	p.duration.Record(ctx, seconds, labels)
}

// Sanitize 截断并遮盖敏感字段
func (p *OTELPlugin) Sanitize(sql string) string {
	if len(sql) > p.config.MaxSQLLength {
		sql = sql[:p.config.MaxSQLLength] + "..."
	}
	return sensitiveSQL.ReplaceAllString(sql, "$1='***'")
}

// OperationName 由 SQL 前缀得出操作名
func OperationName(sql string) string {
	sql = strings.ToUpper(strings.TrimSpace(sql))
	for _, op := range []string{"SELECT", "INSERT", "UPDATE", "DELETE"} {
		if strings.HasPrefix(sql, op) {
			return "db." + strings.ToLower(op)
		}
	}
	if sql == "" {
		return "db.unknown"
	}
	return "db.query"
}

func tableName(db *gorm.DB) string {
	if db.Statement.Table != "" {
		return db.Statement.Table
	}
	return "unknown"
}

// WithOTELPlugin 为 GORM 添加 OpenTelemetry 插件
func WithOTELPlugin(db *gorm.DB, config PluginConfig) error {
	return db.Use(NewOTELPlugin(config))
}
