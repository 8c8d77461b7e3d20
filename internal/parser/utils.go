package parser

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// headerCorrections 已知的表头拼写修正；值不得再作为键出现（保证规范化幂等）
var headerCorrections = map[string]string{
	"Score Golbal": "Score Global",
}

// errorSentinels 电子表格错误值，读取时视为缺失
var errorSentinels = map[string]struct{}{
	"#VALUE!": {},
	"#NAME?":  {},
	"#REF!":   {},
	"#DIV/0!": {},
	"#NUM!":   {},
	"#NULL!":  {},
	"#N/A":    {},
}

// NormalizeHeader 规范化列名：去除首尾空白，折叠内部空白，修正已知拼写错误
func NormalizeHeader(name string) string {
	name = strings.TrimSpace(name)
	name = whitespaceRe.ReplaceAllString(name, " ")
	if fixed, ok := headerCorrections[name]; ok {
		return fixed
	}
	return name
}

// NormalizeHeaders 规范化整行表头
func NormalizeHeaders(headers []string) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		out[i] = NormalizeHeader(h)
	}
	return out
}

// IsErrorSentinel reports whether v is a spreadsheet error value such as #REF!.
func IsErrorSentinel(v string) bool {
	_, ok := errorSentinels[strings.TrimSpace(v)]
	return ok
}

// CleanCell 清洗单元格：空白与错误哨兵返回 ("", false)
func CleanCell(v string) (string, bool) {
	v = strings.TrimSpace(v)
	if v == "" || IsErrorSentinel(v) {
		return "", false
	}
	return v, true
}

// ParseNumber 解析数值单元格，兼容逗号小数、千分位空格；无法解析返回 false
func ParseNumber(v string) (float64, bool) {
	v = strings.TrimSpace(v)
	if v == "" || IsErrorSentinel(v) {
		return 0, false
	}
	v = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, v)
	if strings.Contains(v, ",") {
		if strings.Contains(v, ".") {
			v = strings.ReplaceAll(v, ",", "")
		} else {
			v = strings.ReplaceAll(v, ",", ".")
		}
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ParseInt parses an integer cell; float renderings such as "2015.0" are floored.
func ParseInt(v string) (int, bool) {
	f, ok := ParseNumber(v)
	if !ok {
		return 0, false
	}
	return int(math.Floor(f)), true
}

// ContainsFold 大小写不敏感的包含判断
func ContainsFold(text, sub string) bool {
	return strings.Contains(strings.ToLower(text), strings.ToLower(sub))
}

// HasPrefixFold is a case-insensitive strings.HasPrefix.
func HasPrefixFold(text, prefix string) bool {
	return strings.HasPrefix(strings.ToLower(text), strings.ToLower(prefix))
}

// MatchAny 与任一候选列名（大小写不敏感）相等
func MatchAny(header string, candidates ...string) bool {
	header = NormalizeHeader(header)
	for _, c := range candidates {
		if strings.EqualFold(header, NormalizeHeader(c)) {
			return true
		}
	}
	return false
}

// NormalizeURL 为缺少协议的链接补全 https://；空值返回空串
func NormalizeURL(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	if strings.Contains(v, "://") || HasPrefixFold(v, "data:") || HasPrefixFold(v, "mailto:") {
		return v
	}
	return "https://" + strings.TrimLeft(v, "/")
}
