package parser

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// NormalizeColumnName 规范化列名，去除所有空白字符
// "中考   语文   平均分   p1" -> "中考语文平均分p1"
func NormalizeColumnName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "\n", "")
	name = strings.ReplaceAll(name, "\r", "")
	name = strings.ReplaceAll(name, "\t", "")
	name = strings.ReplaceAll(name, "　", "")
	return whitespaceRe.ReplaceAllString(name, "")
}

// ContainsAny 检查字符串是否包含任意一个关键词
func ContainsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

var patternCache sync.Map // pattern -> *regexp.Regexp

// MatchPattern 使用正则匹配（编译结果缓存）
func MatchPattern(text, pattern string) bool {
	if v, ok := patternCache.Load(pattern); ok {
		return v.(*regexp.Regexp).MatchString(text)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false
	}
	patternCache.Store(pattern, re)
	return re.MatchString(text)
}

// missingTokens 视为缺失值的单元格文本
var missingTokens = map[string]struct{}{
	"":         {},
	"nan":      {},
	"NaN":      {},
	"-nan":     {},
	"-NaN":     {},
	"None":     {},
	"NULL":     {},
	"null":     {},
	"#N/A":     {},
	"#N/AN/A":  {},
	"#NA":      {},
	"N/A":      {},
	"NA":       {},
	"-":        {},
	"--":       {},
	"/":        {},
	"1.#IND":   {},
	"-1.#IND":  {},
	"1.#QNAN":  {},
	"-1.#QNAN": {},
	"#DIV/0!":  {},
	"#VALUE!":  {},
}

// ParseNumeric 解析单元格数值
//
// 去除百分号与空白，中英文逗号视为小数点；缺失标记、无法解析的文本与无穷大均返回 ok=false。
// 百分号只做剥离，不做 /100 换算。
func ParseNumeric(raw string) (float64, bool) {
	s := whitespaceRe.ReplaceAllString(raw, "")
	s = strings.ReplaceAll(s, "%", "")
	s = strings.ReplaceAll(s, "％", "")
	if _, ok := missingTokens[s]; ok {
		return 0, false
	}
	s = strings.ReplaceAll(s, "，", ".")
	s = strings.ReplaceAll(s, ",", ".")

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// cell 安全取单元格文本
func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// isBlankRow 整行是否为空
func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
