// Package report 考勤报表：时间范围过滤、汇总、状态分布、按日工时以及导出。
package report

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"Attendify/internal/model"
	"Attendify/pkg/errors"
)

// Range 报表时间范围
type Range string

const (
	Range7d  Range = "7d"
	Range30d Range = "30d"
	Range90d Range = "90d"
	RangeAll Range = "all"
)

// ParseRange 空值按 7d 处理
func ParseRange(s string) (Range, error) {
	switch r := Range(strings.ToLower(strings.TrimSpace(s))); r {
	case "":
		return Range7d, nil
	case Range7d, Range30d, Range90d, RangeAll:
		return r, nil
	default:
		return "", errors.Validation("range", "Range must be 7d, 30d, 90d or all")
	}
}

// Days 范围天数，all 返回 0
func (r Range) Days() int {
	switch r {
	case Range7d:
		return 7
	case Range30d:
		return 30
	case Range90d:
		return 90
	default:
		return 0
	}
}

// Filter 保留记录日期不早于 now 往前推 N 天的记录
func Filter(records []model.AttendanceRecord, r Range, now time.Time) []model.AttendanceRecord {
	if r == RangeAll || r.Days() == 0 {
		return append([]model.AttendanceRecord(nil), records...)
	}
	cutoff := now.AddDate(0, 0, -r.Days())
	out := make([]model.AttendanceRecord, 0, len(records))
	for _, rec := range records {
		if !recordDate(rec, now.Location()).Before(cutoff) {
			out = append(out, rec)
		}
	}
	return out
}

// recordDate 记录日期当天零点，缺少 date 时用签到日
func recordDate(rec model.AttendanceRecord, loc *time.Location) time.Time {
	if d, err := time.ParseInLocation(model.DateLayout, rec.Date, loc); err == nil {
		return d
	}
	y, m, d := rec.CheckIn.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// Summary 汇总指标
type Summary struct {
	TotalHours  float64 `json:"total_hours"`
	Punctuality float64 `json:"punctuality"`
	LateIssues  int     `json:"late_issues"`
	Records     int     `json:"records"`
}

// Summarize 准时率 = PRESENT / 总数 * 100，保留一位小数；没有记录时为 0
func Summarize(records []model.AttendanceRecord) Summary {
	var s Summary
	present := 0
	for _, rec := range records {
		s.TotalHours += rec.WorkHours
		switch rec.Status {
		case model.AttendancePresent:
			present++
		case model.AttendanceLate:
			s.LateIssues++
		}
	}
	s.Records = len(records)
	total := len(records)
	if total == 0 {
		total = 1
	}
	s.Punctuality = round1(float64(present) / float64(total) * 100)
	return s
}

// Slice 状态分布的一项
type Slice struct {
	Label  string                 `json:"label"`
	Status model.AttendanceStatus `json:"status"`
	Count  int                    `json:"count"`
}

var distributionOrder = []Slice{
	{Label: "Present", Status: model.AttendancePresent},
	{Label: "Late", Status: model.AttendanceLate},
	{Label: "Half Day", Status: model.AttendanceHalfDay},
	{Label: "On Leave", Status: model.AttendanceOnLeave},
}

// Distribution 只返回数量大于 0 的状态
func Distribution(records []model.AttendanceRecord) []Slice {
	counts := make(map[model.AttendanceStatus]int)
	for _, rec := range records {
		counts[rec.Status]++
	}
	out := make([]Slice, 0, len(distributionOrder))
	for _, s := range distributionOrder {
		if n := counts[s.Status]; n > 0 {
			s.Count = n
			out = append(out, s)
		}
	}
	return out
}

// DayPoint 某天的总工时
type DayPoint struct {
	Date  string  `json:"date"`
	Label string  `json:"label"`
	Hours float64 `json:"hours"`
	Count int     `json:"count"`
}

// DailySeries 按日期升序
func DailySeries(records []model.AttendanceRecord, loc *time.Location) []DayPoint {
	if loc == nil {
		loc = time.Local
	}
	byDay := make(map[string]*DayPoint)
	for _, rec := range records {
		day := recordDate(rec, loc)
		key := day.Format(model.DateLayout)
		p, ok := byDay[key]
		if !ok {
			p = &DayPoint{Date: key, Label: day.Format("Jan 2")}
			byDay[key] = p
		}
		p.Hours += rec.WorkHours
		p.Count++
	}
	out := make([]DayPoint, 0, len(byDay))
	for _, p := range byDay {
		p.Hours = round1(p.Hours)
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// Report 一次报表计算结果
type Report struct {
	GeneratedAt  time.Time                `json:"generated_at"`
	Range        Range                    `json:"range"`
	Records      []model.AttendanceRecord `json:"records"`
	Distribution []Slice                  `json:"distribution"`
	Daily        []DayPoint               `json:"daily"`
	Summary      Summary                  `json:"summary"`
}

// Build 过滤并计算全部报表数据
func Build(records []model.AttendanceRecord, r Range, now time.Time) *Report {
	filtered := Filter(records, r, now)
	return &Report{
		GeneratedAt:  now,
		Range:        r,
		Records:      filtered,
		Summary:      Summarize(filtered),
		Distribution: Distribution(filtered),
		Daily:        DailySeries(filtered, now.Location()),
	}
}

// FileName 导出文件名，例如 Attendify_Report_7d_2024-06-12.csv
func FileName(r Range, now time.Time, ext string) string {
	return fmt.Sprintf("Attendify_Report_%s_%s.%s", r, now.Format(model.DateLayout), ext)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
