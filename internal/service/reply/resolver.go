package reply

import (
	"context"
	"log/slog"
	"time"

	"github.com/zhouzirui/chattia/backend/internal/analysis/rules"
	"github.com/zhouzirui/chattia/backend/internal/logging"
	"github.com/zhouzirui/chattia/backend/internal/service/remote"
)

const (
	// EscalationRule 是远程升级回复的规则名
	EscalationRule = "escalation"

	// Apology 在远程服务失败或超时时替代升级回复
	Apology = "I'm sorry, I couldn't reach the assistant service right now. Please try again in a moment."

	defaultTimeout = 10 * time.Second
)

// Reply 是一次解析的结果。
type Reply struct {
	Text      string `json:"reply"`
	Rule      string `json:"rule"`
	Escalated bool   `json:"escalated"`
	Degraded  bool   `json:"degraded,omitempty"`
}

// Resolver 按顺序执行规则链，无规则命中时升级到远程服务，
// 每次输入恰好产生一条回复。Resolver 不持有可变状态。
type Resolver struct {
	rules     []rules.Rule
	escalator remote.Escalator
	timeout   time.Duration
	log       *slog.Logger
}

// Option 用于定制 Resolver。
type Option func(*Resolver)

// WithTimeout 限制每次升级调用的时长，非正数忽略。
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithLogger 替换记录升级失败的日志。
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.log = l
		}
	}
}

// NewResolver 基于 ruleSet 创建解析器。escalator 为 nil 时使用无延迟的模拟服务。
func NewResolver(ruleSet []rules.Rule, escalator remote.Escalator, opts ...Option) *Resolver {
	if escalator == nil {
		escalator = remote.NewSimulated(0)
	}
	r := &Resolver{
		rules:     append([]rules.Rule(nil), ruleSet...),
		escalator: escalator,
		timeout:   defaultTimeout,
		log:       logging.Component("reply"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Match 只执行同步规则。
func (r *Resolver) Match(input string) (Reply, bool) {
	normalized := rules.Normalize(input)
	for _, rule := range r.rules {
		if text, ok := rule.TryResolve(normalized); ok {
			return Reply{Text: text, Rule: rule.Name()}, true
		}
	}
	return Reply{}, false
}

// Resolve 返回 input 对应的回复。唯一的错误是调用方 ctx 在等待远程服务时结束；
// 远程服务自身的失败降级为 Apology。
func (r *Resolver) Resolve(ctx context.Context, input string) (Reply, error) {
	if reply, ok := r.Match(input); ok {
		return reply, nil
	}

	escCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	text, err := r.escalator.Submit(escCtx, input)
	if err == nil {
		return Reply{Text: text, Rule: EscalationRule, Escalated: true}, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return Reply{}, ctxErr
	}

	r.log.Error("escalation failed", "error", err, "timeout", r.timeout)
	return Unavailable(), nil
}

// Unavailable 返回远程服务不可用时的降级回复。
func Unavailable() Reply {
	return Reply{Text: Apology, Rule: EscalationRule, Escalated: true, Degraded: true}
}
