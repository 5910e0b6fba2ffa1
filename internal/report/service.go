package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"Attendify/internal/dispatch"
	"Attendify/internal/model"
)

// Subject 汇总邮件主题
const Subject = "Institutional Analytics Summary"

// DefaultRecipient 未配置收件人时使用
const DefaultRecipient = "management@attendify.com"

// EmailBody 汇总邮件正文
func EmailBody(rep *Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Institutional Performance Report (%s)\n", strings.ToUpper(string(rep.Range)))
	b.WriteString("-------------------------------\n")
	fmt.Fprintf(&b, "Total Man-Hours: %.0fh\n", rep.Summary.TotalHours)
	fmt.Fprintf(&b, "Punctuality Rate: %.1f%%\n", rep.Summary.Punctuality)
	fmt.Fprintf(&b, "Total Logs Analyzed: %d\n", rep.Summary.Records)
	b.WriteString("Download the full dataset via the portal analytics hub.\n")
	return b.String()
}

// Snapshotter 报表读取的数据来源
type Snapshotter interface {
	Snapshot() *model.Snapshot
}

// Sender 汇总邮件经由写操作入口发送，失败时同样走发件箱兜底
type Sender interface {
	SendEmail(ctx context.Context, to, subject, body string, origin model.MailOrigin) (*dispatch.EmailOutcome, error)
}

type Options struct {
	Source    Snapshotter
	Sender    Sender
	Recipient string
	Location  *time.Location
	Logger    *zap.Logger
	Now       func() time.Time
}

// Service 基于最新快照生成报表
type Service struct {
	source    Snapshotter
	sender    Sender
	recipient string
	loc       *time.Location
	logger    *zap.Logger
	now       func() time.Time
}

func NewService(opts Options) *Service {
	if opts.Recipient == "" {
		opts.Recipient = DefaultRecipient
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		source:    opts.Source,
		sender:    opts.Sender,
		recipient: opts.Recipient,
		loc:       opts.Location,
		logger:    opts.Logger,
		now:       opts.Now,
	}
}

// Location 导出使用的时区
func (s *Service) Location() *time.Location {
	return s.loc
}

// Build 当前快照上的报表
func (s *Service) Build(r Range) *Report {
	snap := s.source.Snapshot()
	return Build(snap.Attendance, r, s.now().In(s.loc))
}

// Email 将汇总发给管理层
func (s *Service) Email(ctx context.Context, r Range) (*dispatch.EmailOutcome, error) {
	rep := s.Build(r)
	out, err := s.sender.SendEmail(ctx, s.recipient, Subject, EmailBody(rep), model.MailOriginReport)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Report summary emailed",
		zap.String("range", string(r)),
		zap.Int("records", rep.Summary.Records),
		zap.Bool("sent", out.Sent),
	)
	return out, nil
}
