package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelMetrics OpenTelemetry 指标集合
type OTelMetrics struct {
	// 同步相关指标
	SyncInvocationsTotal   metric.Int64Counter
	SyncDuration           metric.Float64Histogram
	SyncCollectionFailures metric.Int64Counter
	SyncOffline            metric.Int64UpDownCounter

	// 远端网关指标
	GatewayRequestsTotal   metric.Int64Counter
	GatewayRequestDuration metric.Float64Histogram

	// 邮件发件箱指标
	MailDeliveriesTotal metric.Int64Counter
	MailSendDuration    metric.Float64Histogram
	MailRetryTotal      metric.Int64Counter
}

var (
	// 全局指标实例
	metrics *OTelMetrics
)

// InitMetrics 初始化 OpenTelemetry 指标，需在全局 MeterProvider 设置之后调用
func InitMetrics() error {
	var err error
	meter := otel.Meter("attendify")

	m := &OTelMetrics{}

	m.SyncInvocationsTotal, err = meter.Int64Counter(
		"sync.invocations.total",
		metric.WithDescription("Total number of sync invocations by outcome"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return err
	}

	m.SyncDuration, err = meter.Float64Histogram(
		"sync.duration",
		metric.WithDescription("Time spent in one sync invocation"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 15.0),
	)
	if err != nil {
		return err
	}

	m.SyncCollectionFailures, err = meter.Int64Counter(
		"sync.collection.failures.total",
		metric.WithDescription("Failed collection fetches by collection and failure kind"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return err
	}

	m.SyncOffline, err = meter.Int64UpDownCounter(
		"sync.offline",
		metric.WithDescription("1 while the session is in degraded mode"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return err
	}

	m.GatewayRequestsTotal, err = meter.Int64Counter(
		"gateway.requests.total",
		metric.WithDescription("Total number of remote API requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return err
	}

	m.GatewayRequestDuration, err = meter.Float64Histogram(
		"gateway.request.duration",
		metric.WithDescription("Remote API request duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	m.MailDeliveriesTotal, err = meter.Int64Counter(
		"mail.deliveries.total",
		metric.WithDescription("Mail outbox delivery attempts by status"),
		metric.WithUnit("{mail}"),
	)
	if err != nil {
		return err
	}

	m.MailSendDuration, err = meter.Float64Histogram(
		"mail.send.duration",
		metric.WithDescription("Time spent relaying one mail over SMTP"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	m.MailRetryTotal, err = meter.Int64Counter(
		"mail.retry.total",
		metric.WithDescription("Total number of mail delivery retries"),
		metric.WithUnit("{retry}"),
	)
	if err != nil {
		return err
	}

	metrics = m
	return nil
}

// GetMetrics 获取全局指标实例，未初始化时为 nil
func GetMetrics() *OTelMetrics {
	return metrics
}

// RecordSync 记录一次同步调用
func (m *OTelMetrics) RecordSync(ctx context.Context, outcome string, seconds float64) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.SyncInvocationsTotal.Add(ctx, 1, attrs)
	m.SyncDuration.Record(ctx, seconds, attrs)
}

// RecordCollectionFailure 记录单个集合拉取失败
func (m *OTelMetrics) RecordCollectionFailure(ctx context.Context, collection, kind string) {
	m.SyncCollectionFailures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("collection", collection),
		attribute.String("kind", kind),
	))
}

// RecordGatewayRequest 记录一次远端请求
func (m *OTelMetrics) RecordGatewayRequest(ctx context.Context, endpoint, method, status string, seconds float64) {
	m.GatewayRequestsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("endpoint", endpoint),
		attribute.String("method", method),
		attribute.String("status", status),
	))
	m.GatewayRequestDuration.Record(ctx, seconds, metric.WithAttributes(
		attribute.String("endpoint", endpoint),
		attribute.String("method", method),
	))
}

// RecordMailDelivery 记录一次邮件投递
func (m *OTelMetrics) RecordMailDelivery(ctx context.Context, origin, status string, seconds float64) {
	m.MailDeliveriesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("origin", origin),
		attribute.String("status", status),
	))
	m.MailSendDuration.Record(ctx, seconds, metric.WithAttributes(
		attribute.String("origin", origin),
	))
}
