// Package mq RabbitMQ 的 OpenTelemetry 包装
package mq

import (
	"context"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// Publisher amqp.Channel 中发布所需的部分
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Instrumentation 发布与消费的追踪和指标
type Instrumentation struct {
	tracer      trace.Tracer
	propagators propagation.TextMapPropagator
	messages    metric.Int64Counter
	duration    metric.Float64Histogram
	errs        metric.Int64Counter
	serviceName string
}

// NewInstrumentation 指标从全局 MeterProvider 创建，未初始化时为 no-op
func NewInstrumentation(serviceName string) *Instrumentation {
	meter := otel.Meter(serviceName + ".rabbitmq")
	messages, _ := meter.Int64Counter("mq.messages.total",
		metric.WithDescription("Total number of RabbitMQ messages"),
		metric.WithUnit("{message}"),
	)
	duration, _ := meter.Float64Histogram("mq.message.duration",
		metric.WithDescription("RabbitMQ message processing duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5),
	)
	errs, _ := meter.Int64Counter("mq.errors.total",
		metric.WithDescription("Number of RabbitMQ publish and consume errors"),
		metric.WithUnit("{error}"),
	)
	return &Instrumentation{
		tracer:      otel.Tracer(serviceName + ".rabbitmq"),
		propagators: otel.GetTextMapPropagator(),
		messages:    messages,
		duration:    duration,
		errs:        errs,
		serviceName: serviceName,
	}
}

// Publish 发布消息，并把追踪上下文注入消息头
func (in *Instrumentation) Publish(ctx context.Context, ch Publisher, exchange, routingKey string, msg amqp.Publishing) error {
	start := time.Now()
	ctx, span := in.tracer.Start(ctx, "rabbitmq.publish "+destination(exchange, routingKey),
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			semconv.MessagingSystem("rabbitmq"),
			semconv.MessagingDestinationName(destination(exchange, routingKey)),
			semconv.MessagingRabbitmqDestinationRoutingKey(routingKey),
			semconv.MessagingMessageID(msg.MessageId),
		),
	)
	defer span.End()

	headers := make(amqp.Table, len(msg.Headers)+2)
	for k, v := range msg.Headers {
		headers[k] = v
	}
	in.propagators.Inject(ctx, &MessageHeaderCarrier{Headers: headers})
	msg.Headers = headers

	err := ch.PublishWithContext(ctx, exchange, routingKey, false, false, msg)
	in.record(ctx, span, "publish", routingKey, err, time.Since(start))
	return err
}

// StartConsume 为一条投递开启处理 span，返回的 finish 在处理完成后调用
func (in *Instrumentation) StartConsume(ctx context.Context, queue string, d amqp.Delivery) (context.Context, func(error)) {
	start := time.Now()
	ctx = in.propagators.Extract(ctx, &MessageHeaderCarrier{Headers: d.Headers})
	ctx, span := in.tracer.Start(ctx, "rabbitmq.process "+queue,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			semconv.MessagingSystem("rabbitmq"),
			semconv.MessagingDestinationName(queue),
			semconv.MessagingMessageID(d.MessageId),
			attribute.Bool("messaging.rabbitmq.redelivered", d.Redelivered),
		),
	)
	return ctx, func(err error) {
		in.record(ctx, span, "process", queue, err, time.Since(start))
		span.End()
	}
}

func (in *Instrumentation) record(ctx context.Context, span trace.Span, operation, dest string, err error, took time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		in.errs.Add(ctx, 1, metric.WithAttributes(attribute.String("messaging.operation", operation)))
	} else {
		span.SetStatus(codes.Ok, "")
	}
	labels := metric.WithAttributes(
		semconv.MessagingSystem("rabbitmq"),
		attribute.String("messaging.operation", operation),
		attribute.String("messaging.destination", dest),
		attribute.String("messaging.status", status),
	)
	in.messages.Add(ctx, 1, labels)
	in.duration.Record(ctx, took.Seconds(), labels)
}

func destination(exchange, routingKey string) string {
	if exchange == "" {
		return routingKey
	}
	return exchange
}

// MessageHeaderCarrier 实现 propagation.TextMapCarrier 接口
type MessageHeaderCarrier struct {
	Headers amqp.Table
}

func (m *MessageHeaderCarrier) Get(key string) string {
	if val, ok := m.Headers[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

func (m *MessageHeaderCarrier) Set(key, value string) {
	if m.Headers == nil {
		m.Headers = make(amqp.Table)
	}
	m.Headers[key] = value
}

func (m *MessageHeaderCarrier) Keys() []string {
	keys := make([]string, 0, len(m.Headers))
	for k := range m.Headers {
		keys = append(keys, k)
	}
	return keys
}
