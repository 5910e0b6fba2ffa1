package metrics

import (
	"context"
)

// 包级便捷函数：指标未初始化时静默跳过

// RecordSync 记录一次同步调用，outcome 为 success / degraded / cancelled / superseded
func RecordSync(ctx context.Context, outcome string, seconds float64) {
	if m := GetMetrics(); m != nil {
		m.RecordSync(ctx, outcome, seconds)
	}
}

// RecordCollectionFailure 记录集合拉取失败
func RecordCollectionFailure(ctx context.Context, collection, kind string) {
	if m := GetMetrics(); m != nil {
		m.RecordCollectionFailure(ctx, collection, kind)
	}
}

// SetOffline 降级状态切换时调用，delta 为 +1 / -1
func SetOffline(ctx context.Context, delta int64) {
	if m := GetMetrics(); m != nil {
		m.SyncOffline.Add(ctx, delta)
	}
}

// RecordGatewayRequest 记录远端请求
func RecordGatewayRequest(ctx context.Context, endpoint, method, status string, seconds float64) {
	if m := GetMetrics(); m != nil {
		m.RecordGatewayRequest(ctx, endpoint, method, status, seconds)
	}
}

// RecordMailDelivery 记录邮件投递结果
func RecordMailDelivery(ctx context.Context, origin, status string, seconds float64) {
	if m := GetMetrics(); m != nil {
		m.RecordMailDelivery(ctx, origin, status, seconds)
	}
}

// RecordMailRetry 记录邮件重试
func RecordMailRetry(ctx context.Context) {
	if m := GetMetrics(); m != nil {
		m.MailRetryTotal.Add(ctx, 1)
	}
}
