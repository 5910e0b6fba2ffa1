// Package mailer 经 SMTP 中继投递发件箱中的邮件
package mailer

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"

	"Attendify/internal/model"
)

// Dialer 抽象 gomail 的连接发送，测试中替换
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// DialerFactory 按中继配置创建连接
type DialerFactory func(relay model.SMTP) Dialer

// DefaultDialer gomail 的 SMTP 拨号器
func DefaultDialer(relay model.SMTP) Dialer {
	return gomail.NewDialer(relay.Host, relay.Port, relay.User, relay.Password)
}

// SMTPSender 使用设置中的中继配置发信
type SMTPSender struct {
	dial DialerFactory
}

func NewSMTPSender(dial DialerFactory) *SMTPSender {
	if dial == nil {
		dial = DefaultDialer
	}
	return &SMTPSender{dial: dial}
}

// Message 构造纯文本邮件，发件人为中继账号
func Message(relay model.SMTP, d *model.MailDelivery) *gomail.Message {
	m := gomail.NewMessage()
	from := relay.User
	if !strings.Contains(from, "@") {
		from = "no-reply@" + relay.Host
	}
	m.SetAddressHeader("From", from, relay.FromName)
	m.SetHeader("To", d.Recipient)
	m.SetHeader("Subject", d.Subject)
	m.SetHeader("X-Attendify-Message-Id", d.MessageID)
	m.SetBody("text/plain", d.Body)
	return m
}

// Send 发送一封邮件；gomail 不支持 context，只在发送前检查取消
func (s *SMTPSender) Send(ctx context.Context, relay model.SMTP, d *model.MailDelivery) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !relay.Configured() {
		return fmt.Errorf("smtp relay is not configured")
	}
	if err := s.dial(relay).DialAndSend(Message(relay, d)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", d.Recipient, err)
	}
	return nil
}
