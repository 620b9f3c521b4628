package rules

import (
	"fmt"
	"strings"
)

// Refusal 是未通过安全检查时的回复。
const Refusal = "I'm sorry, that query contains keywords that are not allowed. Please try a different message."

// BlockedKeywords 是安全规则检查的禁用词。
var BlockedKeywords = []string{"malware", "exploit", "unauthorized access", "data breach"}

// DefaultLookupTable 返回精确短语的固定回复。
func DefaultLookupTable(botName string) map[string]string {
	greeting := "Hello there! It's great to chat with you."
	return map[string]string{
		"hi":                greeting,
		"hello":             greeting,
		"how are you":       "I'm doing great, thank you for asking! How about you?",
		"what is your name": fmt.Sprintf("My name is %s, and I'm here to assist you.", botName),
		"what can you do":   "I can help with simple questions and complex queries.",
	}
}

// DefaultIntents 返回关键词意图，天气优先。
func DefaultIntents() []Intent {
	return []Intent{
		{
			Label:    "weather",
			Keywords: []string{"weather", "forecast"},
			Reply:    "I can check the weather for you. What city are you in?",
		},
		{
			Label:    "support",
			Keywords: []string{"help", "support"},
			Reply:    "I can connect you to a support agent. What's the issue?",
		},
	}
}

// DefaultQuestions 返回关于助手自身的固定问题。
func DefaultQuestions(botName string) []Intent {
	return []Intent{
		{
			Label:    "creator",
			Keywords: []string{"who created you"},
			Reply:    fmt.Sprintf("I'm %s. I was built by a small team of developers to answer everyday questions.", botName),
		},
		{
			Label:    "identity",
			Keywords: []string{"what is " + strings.ToLower(botName)},
			Reply:    fmt.Sprintf("%s is a layered assistant: quick answers come from built-in rules and harder questions go to a larger model.", botName),
		},
	}
}

// Default 返回名为 botName 的助手的完整有序规则链。
func Default(botName string) []Rule {
	return []Rule{
		NewSafety(BlockedKeywords, Refusal),
		NewLookup(DefaultLookupTable(botName)),
		NewIntents("intent", DefaultIntents()),
		NewIntents("question", DefaultQuestions(botName)),
		Conversion{},
		Arithmetic{},
	}
}
