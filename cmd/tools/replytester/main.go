package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/zhouzirui/chattia/backend/internal/analysis/rules"
	"github.com/zhouzirui/chattia/backend/internal/config"
	"github.com/zhouzirui/chattia/backend/internal/logging"
	"github.com/zhouzirui/chattia/backend/internal/service/remote"
	"github.com/zhouzirui/chattia/backend/internal/service/reply"
)

func main() {
	logging.Preinit()

	name := flag.String("name", "Chattia", "固定问题规则使用的机器人名称")
	latency := flag.Duration("latency", 0, "模拟远程服务的延迟")
	timeout := flag.Duration("timeout", 10*time.Second, "每行升级调用的超时时间")
	level := flag.String("log-level", "warn", "日志级别: debug, info, warn, error")
	flag.Parse()

	logging.Init(config.LogConfig{Level: *level})

	resolver := reply.NewResolver(
		rules.Default(*name),
		remote.NewSimulated(*latency),
		reply.WithTimeout(*timeout),
		reply.WithLogger(logging.Component("replytester")),
	)

	if err := resolveLines(context.Background(), resolver, os.Stdin, os.Stdout); err != nil {
		slog.Error("resolve failed", "error", err)
		os.Exit(1)
	}
}

// resolveLines 解析每一行非空输入并输出 "rule<TAB>reply"。
func resolveLines(ctx context.Context, resolver *reply.Resolver, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		r, err := resolver.Resolve(ctx, line)
		if err != nil {
			return fmt.Errorf("resolve %q: %w", line, err)
		}
		if _, err := fmt.Fprintf(out, "%s\t%s\n", r.Rule, r.Text); err != nil {
			return err
		}
	}
	return scanner.Err()
}
