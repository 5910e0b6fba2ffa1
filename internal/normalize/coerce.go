// Package normalize 把远端返回的松散 JSON 记录转换为规范实体。
//
// 约定：
//   - 所有 id 统一为字符串，数字 7、7.0、"7" 都得到 "7"
//   - 0/1、"0"/"1"、"true"/"false" 形式的布尔值转换为 bool
//   - 字符串形式的数字解析失败时取 0；可选数字缺失时为"不存在"而不是 0
//   - 单条记录损坏不会中断整个集合的转换
package normalize

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Record 一条未经类型化的远端记录
type Record = map[string]interface{}

// 远端常用的时间格式，按顺序尝试
var timeLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
}

// 包装集合时可能使用的键
var envelopeKeys = []string{"data", "records", "items", "rows", "result"}

// Records 接受裸数组或 {"data": [...]} 形式的载荷，非对象元素直接跳过
func Records(payload interface{}) []Record {
	switch v := payload.(type) {
	case []Record:
		return v
	case []interface{}:
		out := make([]Record, 0, len(v))
		for _, item := range v {
			if r, ok := item.(Record); ok {
				out = append(out, r)
			}
		}
		return out
	case Record:
		for _, key := range envelopeKeys {
			if inner, ok := v[key]; ok {
				return Records(inner)
			}
		}
	}
	return nil
}

// field 返回第一个非空字段
func field(r Record, keys ...string) interface{} {
	for _, k := range keys {
		if v, ok := r[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

// ID 把数字或字符串形式的标识统一为字符串
func ID(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return strconv.FormatInt(i, 10)
		}
		if f, err := x.Float64(); err == nil {
			return formatIntegral(f)
		}
		return x.String()
	case float64:
		return formatIntegral(x)
	case float32:
		return formatIntegral(float64(x))
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	default:
		return fmt.Sprint(x)
	}
}

func formatIntegral(f float64) string {
	if f == math.Trunc(f) && !math.IsInf(f, 0) && math.Abs(f) < 1e18 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// String 任意标量转字符串，nil 为空串
func String(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return fmt.Sprint(x)
	}
}

// Bool 0/1、数字字符串和 true/false 都能识别，其余为 false
func Bool(v interface{}) bool {
	b, _ := boolValue(v)
	return b
}

// BoolOr 字段缺失时返回 def
func BoolOr(v interface{}, def bool) bool {
	if b, ok := boolValue(v); ok {
		return b
	}
	return def
}

func boolValue(v interface{}) (bool, bool) {
	switch x := v.(type) {
	case nil:
		return false, false
	case bool:
		return x, true
	case string:
		s := strings.ToLower(strings.TrimSpace(x))
		switch s {
		case "":
			return false, false
		case "true", "yes", "y", "on":
			return true, true
		case "false", "no", "n", "off":
			return false, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f != 0, true
		}
		return false, true
	default:
		f, ok := number(v)
		if !ok {
			return false, false
		}
		return f != 0, true
	}
}

// Float 解析失败返回 0
func Float(v interface{}) float64 {
	f, _ := OptionalFloat(v)
	return f
}

// Int 解析失败返回 0，小数向零截断
func Int(v interface{}) int {
	return int(Float(v))
}

// OptionalFloat 缺失、空串或无法解析时返回 false
func OptionalFloat(v interface{}) (float64, bool) {
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}
	return number(v)
}

func number(v interface{}) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case int32:
		f = float64(x)
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Time 解析远端时间；不带时区的格式按 loc 解释，无法解析返回零值
func Time(v interface{}, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	switch x := v.(type) {
	case string:
		s := strings.TrimSpace(x)
		if s == "" || strings.HasPrefix(s, "0000-00-00") {
			return time.Time{}
		}
		for _, layout := range timeLayouts {
			if t, err := time.ParseInLocation(layout, s, loc); err == nil {
				return t
			}
		}
		return time.Time{}
	case time.Time:
		return x
	default:
		f, ok := number(v)
		if !ok || f <= 0 {
			return time.Time{}
		}
		// 毫秒时间戳
		if f > 1e12 {
			return time.UnixMilli(int64(f)).In(loc)
		}
		return time.Unix(int64(f), 0).In(loc)
	}
}

// Date 只保留日期部分
func Date(v interface{}, loc *time.Location) time.Time {
	t := Time(v, loc)
	if t.IsZero() {
		return t
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// upperEnum 统一枚举写法：大写，空格和短横线转下划线
func upperEnum(v interface{}) string {
	s := strings.ToUpper(strings.TrimSpace(String(v)))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}

func lowerEnum(v interface{}) string {
	return strings.ToLower(strings.TrimSpace(String(v)))
}
