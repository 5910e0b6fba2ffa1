package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"Attendify/internal/dispatch"
	"Attendify/internal/model"
	"Attendify/pkg/errors"
)

func rec(day string, hours float64, status model.AttendanceStatus) model.AttendanceRecord {
	in, _ := time.ParseInLocation("2006-01-02 15:04", day+" 09:00", time.UTC)
	out := in.Add(time.Duration(hours * float64(time.Hour)))
	return model.AttendanceRecord{
		ID: day, UserID: "7", UserName: "Ana", Date: day,
		CheckIn: in, CheckOut: &out, Status: status, WorkHours: hours,
	}
}

func sample() []model.AttendanceRecord {
	return []model.AttendanceRecord{
		rec("2024-06-11", 8, model.AttendancePresent),
		rec("2024-06-10", 7.5, model.AttendanceLate),
		rec("2024-06-10", 4, model.AttendanceHalfDay),
		rec("2024-05-20", 8, model.AttendancePresent),
		rec("2024-01-02", 8, model.AttendancePresent),
	}
}

var now = time.Date(2024, 6, 12, 15, 0, 0, 0, time.UTC)

func TestParseRange(t *testing.T) {
	if r, err := ParseRange(""); err != nil || r != Range7d {
		t.Fatalf("default range = %s %v", r, err)
	}
	if r, err := ParseRange("90D"); err != nil || r != Range90d {
		t.Fatalf("range = %s %v", r, err)
	}
	if _, err := ParseRange("1y"); !errors.Is(err, errors.ValidationFailed) {
		t.Fatalf("err = %v", err)
	}
}

func TestFilterByRange(t *testing.T) {
	tests := []struct {
		r    Range
		want int
	}{
		{Range7d, 3},
		{Range30d, 4},
		{Range90d, 4},
		{RangeAll, 5},
	}
	for _, tt := range tests {
		if got := len(Filter(sample(), tt.r, now)); got != tt.want {
			t.Errorf("%s: got %d records, want %d", tt.r, got, tt.want)
		}
	}
}

func TestSummaryAndDistribution(t *testing.T) {
	rep := Build(sample(), Range7d, now)
	s := rep.Summary
	if s.TotalHours != 19.5 || s.LateIssues != 1 || s.Records != 3 {
		t.Fatalf("summary = %+v", s)
	}
	if s.Punctuality != 33.3 {
		t.Fatalf("punctuality = %v", s.Punctuality)
	}

	want := []Slice{
		{Label: "Present", Status: model.AttendancePresent, Count: 1},
		{Label: "Late", Status: model.AttendanceLate, Count: 1},
		{Label: "Half Day", Status: model.AttendanceHalfDay, Count: 1},
	}
	if len(rep.Distribution) != len(want) {
		t.Fatalf("distribution = %+v", rep.Distribution)
	}
	for i := range want {
		if rep.Distribution[i] != want[i] {
			t.Fatalf("slice %d = %+v", i, rep.Distribution[i])
		}
	}

	if len(rep.Daily) != 2 || rep.Daily[0].Date != "2024-06-10" || rep.Daily[0].Hours != 11.5 || rep.Daily[0].Label != "Jun 10" {
		t.Fatalf("daily = %+v", rep.Daily)
	}

	if empty := Summarize(nil); empty.Punctuality != 0 || empty.Records != 0 {
		t.Fatalf("empty summary = %+v", empty)
	}
}

func TestWriteCSV(t *testing.T) {
	open := rec("2024-06-12", 0, model.AttendanceLate)
	open.CheckOut = nil
	open.UserName = ""
	rep := &Report{Range: Range7d, Records: []model.AttendanceRecord{rec("2024-06-11", 8.25, model.AttendancePresent), open}}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, rep, time.UTC); err != nil {
		t.Fatalf("csv: %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if strings.Join(rows[0], ",") != "Date,Employee,Check-In,Check-Out,Status,Work Hours" {
		t.Fatalf("header = %v", rows[0])
	}
	if strings.Join(rows[1], ",") != "2024-06-11,Ana,09:00:00,17:15:00,PRESENT,8.25" {
		t.Fatalf("row = %v", rows[1])
	}
	if rows[2][1] != "Unknown" || rows[2][3] != "N/A" {
		t.Fatalf("open row = %v", rows[2])
	}
}

func TestWriteXLSX(t *testing.T) {
	rep := Build(sample(), Range7d, now)
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, rep, time.UTC); err != nil {
		t.Fatalf("xlsx: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = f.Close() }()
	rows, err := f.GetRows(SheetName)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) < 4 || rows[0][0] != "Date" || rows[1][1] != "Ana" {
		t.Fatalf("rows = %v", rows)
	}
	found := false
	for _, r := range rows {
		if len(r) >= 2 && r[0] == "Records" && r[1] == "3" {
			found = true
		}
	}
	if !found {
		t.Fatalf("summary block missing: %v", rows)
	}
}

func TestFileName(t *testing.T) {
	if got := FileName(Range30d, now, "csv"); got != "Attendify_Report_30d_2024-06-12.csv" {
		t.Fatalf("name = %s", got)
	}
}

type fakeSource struct{ snap *model.Snapshot }

func (f fakeSource) Snapshot() *model.Snapshot { return f.snap }

type fakeSender struct {
	to, subject, body string
	origin            model.MailOrigin
}

func (s *fakeSender) SendEmail(_ context.Context, to, subject, body string, origin model.MailOrigin) (*dispatch.EmailOutcome, error) {
	s.to, s.subject, s.body, s.origin = to, subject, body, origin
	return &dispatch.EmailOutcome{Sent: true}, nil
}

func TestEmailSummary(t *testing.T) {
	sender := &fakeSender{}
	svc := NewService(Options{
		Source:   fakeSource{snap: &model.Snapshot{Attendance: sample()}},
		Sender:   sender,
		Location: time.UTC,
		Now:      func() time.Time { return now },
	})
	out, err := svc.Email(context.Background(), Range7d)
	if err != nil || !out.Sent {
		t.Fatalf("email: %+v %v", out, err)
	}
	if sender.to != DefaultRecipient || sender.subject != Subject || sender.origin != model.MailOriginReport {
		t.Fatalf("sender = %+v", sender)
	}
	for _, want := range []string{"(7D)", "Total Man-Hours: 20h", "Punctuality Rate: 33.3%", "Total Logs Analyzed: 3"} {
		if !strings.Contains(sender.body, want) {
			t.Fatalf("body missing %q:\n%s", want, sender.body)
		}
	}
}
