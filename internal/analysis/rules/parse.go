package rules

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	celsiusPattern  = regexp.MustCompile(`(-?\d+(?:\.\d+)?)\s*celsius`)
	additionPattern = regexp.MustCompile(`what is\s+(-?\d+)\s*\+\s*(-?\d+)`)
)

// ParseCelsius 从 "convert 20 celsius to fahrenheit" 这类请求中提取温度。
// 必须同时包含 convert 与 celsius，且数字紧挨在 celsius 之前。
func ParseCelsius(normalized string) (float64, bool) {
	if !strings.Contains(normalized, "convert") || !strings.Contains(normalized, "celsius") {
		return 0, false
	}
	m := celsiusPattern.FindStringSubmatch(normalized)
	if m == nil {
		return 0, false
	}
	c, err := strconv.ParseFloat(m[1], 64)
	if err != nil || math.IsInf(c, 0) {
		return 0, false
	}
	return c, true
}

// CelsiusToFahrenheit 将摄氏度转换为华氏度。
func CelsiusToFahrenheit(c float64) float64 {
	return c*9/5 + 32
}

// Addition 是解析后的 "what is a+b" 查询。
type Addition struct {
	Left  int64
	Right int64
}

// Sum 返回和，溢出 int64 时返回 false。
func (a Addition) Sum() (int64, bool) {
	if (a.Right > 0 && a.Left > math.MaxInt64-a.Right) ||
		(a.Right < 0 && a.Left < math.MinInt64-a.Right) {
		return 0, false
	}
	return a.Left + a.Right, true
}

// ParseAddition 提取 "what is <int>+<int>" 的两个操作数，超出 int64 的操作数视为不匹配。
func ParseAddition(normalized string) (Addition, bool) {
	m := additionPattern.FindStringSubmatch(normalized)
	if m == nil {
		return Addition{}, false
	}
	left, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return Addition{}, false
	}
	right, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil {
		return Addition{}, false
	}
	return Addition{Left: left, Right: right}, true
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
