package mailer

import (
	"bytes"
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"gopkg.in/gomail.v2"

	"Attendify/internal/model"
)

type recordingDialer struct {
	sent []*gomail.Message
	err  error
}

func (d *recordingDialer) DialAndSend(m ...*gomail.Message) error {
	d.sent = append(d.sent, m...)
	return d.err
}

func delivery() *model.MailDelivery {
	return &model.MailDelivery{MessageID: "m-1", Recipient: "hr@x.com", Subject: "Weekly", Body: "Hours: 40"}
}

func TestSendUsesRelaySettings(t *testing.T) {
	var got model.SMTP
	rec := &recordingDialer{}
	s := NewSMTPSender(func(relay model.SMTP) Dialer {
		got = relay
		return rec
	})
	relay := model.SMTP{Host: "smtp.x.com", Port: 2525, User: "bot@x.com", Password: "p", FromName: "Attendify"}

	if err := s.Send(context.Background(), relay, delivery()); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got.Port != 2525 || len(rec.sent) != 1 {
		t.Fatalf("relay = %+v sent = %d", got, len(rec.sent))
	}

	var buf bytes.Buffer
	if _, err := rec.sent[0].WriteTo(&buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	raw := buf.String()
	for _, want := range []string{"To: hr@x.com", "Subject: Weekly", "Hours: 40", "bot@x.com"} {
		if !strings.Contains(raw, want) {
			t.Fatalf("message missing %q:\n%s", want, raw)
		}
	}
}

func TestSendFailures(t *testing.T) {
	s := NewSMTPSender(func(model.SMTP) Dialer { return &recordingDialer{err: stderrors.New("550 rejected")} })
	if err := s.Send(context.Background(), model.SMTP{}, delivery()); err == nil {
		t.Fatalf("unconfigured relay should fail")
	}
	err := s.Send(context.Background(), model.SMTP{Host: "smtp.x.com", Port: 25}, delivery())
	if err == nil || !strings.Contains(err.Error(), "550 rejected") {
		t.Fatalf("err = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Send(ctx, model.SMTP{Host: "smtp.x.com"}, delivery()); !stderrors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}
