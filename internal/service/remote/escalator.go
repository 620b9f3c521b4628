// Package remote 提供回复链最后一步使用的异步升级服务。
package remote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zhouzirui/chattia/backend/internal/logging"
)

// Escalator 回答本地规则无法处理的问题。
type Escalator interface {
	Submit(ctx context.Context, query string) (string, error)
}

// EscalatorFunc 把函数适配为 Escalator。
type EscalatorFunc func(ctx context.Context, query string) (string, error)

// Submit 实现 Escalator。
func (f EscalatorFunc) Submit(ctx context.Context, query string) (string, error) {
	return f(ctx, query)
}

// SimulatedTemplate 是模拟服务的回复模板，%s 为原始问题。
const SimulatedTemplate = "I've taken a closer look at \"%s\". Here is a more detailed answer from my extended reasoning service."

// Simulated 模拟真实后端：等待固定延迟后返回包含问题的模板回复。
type Simulated struct {
	latency time.Duration
}

// NewSimulated 创建模拟服务，延迟为 0 时立即返回。
func NewSimulated(latency time.Duration) *Simulated {
	return &Simulated{latency: latency}
}

// Submit 等待配置的延迟，ctx 先结束则提前返回。
func (s *Simulated) Submit(ctx context.Context, query string) (string, error) {
	if s.latency > 0 {
		timer := time.NewTimer(s.latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return "", err
	}
	return fmt.Sprintf(SimulatedTemplate, query), nil
}

// Fallback 先尝试主服务，再依次尝试备选服务。
type Fallback struct {
	primary   Escalator
	fallbacks []Escalator
}

// NewFallback 串联多个服务。
func NewFallback(primary Escalator, fallbacks ...Escalator) *Fallback {
	return &Fallback{primary: primary, fallbacks: fallbacks}
}

// Submit 返回第一个成功的回答，遇到 ctx 错误立即停止。
func (f *Fallback) Submit(ctx context.Context, query string) (string, error) {
	reply, err := f.primary.Submit(ctx, query)
	if err == nil {
		return reply, nil
	}

	log := logging.Component("remote")
	log.Warn("primary escalator failed, trying fallbacks", "error", err)

	lastErr := err
	for i, fb := range f.fallbacks {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}

		reply, lastErr = fb.Submit(ctx, query)
		if lastErr == nil {
			log.Info("fallback escalator succeeded", "index", i+1)
			return reply, nil
		}
		log.Warn("fallback escalator failed", "index", i+1, "error", lastErr)
	}

	if errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded) {
		return "", lastErr
	}
	return "", fmt.Errorf("all escalators failed, last error: %w", lastErr)
}
