package utils

import (
	"context"
	"time"
)

// Pace 在展示机器人消息前等待 d，ctx 先结束时返回其错误。
// 仅影响展示节奏，不属于回复逻辑。
func Pace(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
