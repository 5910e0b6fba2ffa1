package dispatch

import (
	"context"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"Attendify/internal/model"
	"Attendify/pkg/errors"
)

// EmailOutcome 发信结果。远端失败时 Sent 为 false，并给出 mailto 交接链接；
// 配置了发件箱时同时入队，由 worker 经 SMTP 中继重试
type EmailOutcome struct {
	Error     string `json:"error,omitempty"`
	MailtoURL string `json:"mailto_url,omitempty"`
	QueuedID  string `json:"queued_id,omitempty"`
	Sent      bool   `json:"sent"`
}

// MailtoURL 交给本机邮件客户端的链接，主题和正文按 URI 组件编码
func MailtoURL(to, subject, body string) string {
	return "mailto:" + to + "?subject=" + encodeComponent(subject) + "&body=" + encodeComponent(body)
}

func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// SendEmail 通过远端发信；失败时降级而不是报错
func (d *Dispatcher) SendEmail(ctx context.Context, to, subject, body string, origin model.MailOrigin) (*EmailOutcome, error) {
	if _, err := d.identity(); err != nil {
		return nil, err
	}
	to = strings.TrimSpace(to)
	if !strings.Contains(to, "@") {
		return nil, errors.Validation("to", "A valid recipient is required")
	}
	if strings.TrimSpace(subject) == "" {
		return nil, errors.Validation("subject", "Subject is required")
	}
	if origin == "" {
		origin = model.MailOriginFallback
	}

	_, err := d.gw.SendEmail(ctx, to, subject, body)
	if err == nil {
		d.notices.Success("Email sent.")
		d.logger.Info("Email sent", zap.String("recipient", to))
		d.resync(ctx)
		return &EmailOutcome{Sent: true}, nil
	}
	if errors.IsCancelled(err) {
		return nil, err
	}

	d.logger.Warn("Remote email failed, falling back",
		zap.String("recipient", to),
		zap.String("kind", errors.KindOf(err).Code),
		zap.Error(err),
	)
	d.notices.Error(prefixSMTP + err.Error())

	out := &EmailOutcome{
		Error:     err.Error(),
		MailtoURL: MailtoURL(to, subject, body),
	}
	if d.outbox != nil {
		delivery, qerr := d.outbox.Enqueue(context.WithoutCancel(ctx), to, subject, body, origin)
		if qerr != nil {
			d.logger.Error("Failed to enqueue mail fallback", zap.String("recipient", to), zap.Error(qerr))
		} else {
			out.QueuedID = delivery.MessageID
		}
	}
	return out, nil
}

// EmailLogs 远端发信日志
func (d *Dispatcher) EmailLogs(ctx context.Context) ([]model.EmailLog, error) {
	if _, err := d.identity(); err != nil {
		return nil, err
	}
	data, err := d.gw.EmailLogs(ctx)
	if err != nil {
		return nil, err
	}
	return d.norm.EmailLogs(data), nil
}
