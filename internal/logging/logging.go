// Package logging 负责配置进程级 slog 日志。
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	console "github.com/phsym/console-slog"

	"github.com/zhouzirui/chattia/backend/internal/config"
)

// Preinit 在读取配置前安装调试级控制台日志，保证配置错误可读。
func Preinit() {
	slog.SetDefault(slog.New(console.NewHandler(os.Stderr, &console.HandlerOptions{
		Level: slog.LevelDebug,
	})))
}

// Init 按配置替换默认日志。
func Init(cfg config.LogConfig) {
	slog.SetDefault(New(os.Stderr, cfg))
}

// New 创建写入 w 的控制台日志。
func New(w io.Writer, cfg config.LogConfig) *slog.Logger {
	return slog.New(console.NewHandler(w, &console.HandlerOptions{
		AddSource: cfg.AddSource,
		Level:     ParseLevel(cfg.Level),
	}))
}

// ParseLevel 将配置中的级别名转换为 slog 级别，默认 info。
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Component 返回带组件名的默认日志。
func Component(name string) *slog.Logger {
	return slog.Default().With("component", name)
}
