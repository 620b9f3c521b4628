// Package rules 包含组成回复链的无状态规则。
// 每条规则接收归一化后的输入（去除首尾空白并转小写），返回回复或放弃。
// 规则不会出错也不修改状态，同一组规则可被任意数量的并发解析共享。
package rules

import "strings"

// Rule 是回复链中一个具名步骤。
type Rule interface {
	Name() string
	TryResolve(normalized string) (reply string, ok bool)
}

// Normalize 去除首尾空白并转为小写。
func Normalize(input string) string {
	return strings.ToLower(strings.TrimSpace(input))
}

// Func 把普通函数适配为 Rule。
type Func struct {
	RuleName string
	Fn       func(normalized string) (string, bool)
}

// Name 实现 Rule。
func (f Func) Name() string { return f.RuleName }

// TryResolve 实现 Rule。
func (f Func) TryResolve(normalized string) (string, bool) {
	return f.Fn(normalized)
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.ToLower(s))
	}
	return out
}
