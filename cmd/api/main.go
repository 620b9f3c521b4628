package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/chattia/backend/internal/analysis/rules"
	"github.com/zhouzirui/chattia/backend/internal/config"
	"github.com/zhouzirui/chattia/backend/internal/handler"
	"github.com/zhouzirui/chattia/backend/internal/logging"
	"github.com/zhouzirui/chattia/backend/internal/model/persona"
	"github.com/zhouzirui/chattia/backend/internal/model/preference"
	"github.com/zhouzirui/chattia/backend/internal/service/ai"
	"github.com/zhouzirui/chattia/backend/internal/service/chat"
	"github.com/zhouzirui/chattia/backend/internal/service/remote"
	"github.com/zhouzirui/chattia/backend/internal/service/reply"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.Preinit()

	if err := godotenv.Load(); err != nil {
		slog.Warn("failed to load .env file, continuing with system environment variables only", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logging.Init(cfg.Log)

	personaStore := persona.NewMemoryStore(persona.Seed())
	bot, _ := personaStore.FindByID(persona.DefaultID)
	prefs := preference.NewMemoryStore(cfg.Chat.AmbientDarkMode)

	resolver := reply.NewResolver(
		rules.Default(bot.Name),
		newEscalator(ctx, cfg, bot),
		reply.WithTimeout(cfg.Chat.EscalationTimeout),
		reply.WithLogger(logging.Component("reply")),
	)
	chatService := chat.NewService(personaStore, resolver)

	router := handler.NewRouter(personaStore, chatService, prefs, cfg.Chat.ReplyDelay)

	startServer(ctx, cfg.Server, router)
}

// newEscalator 优先使用 Ark 大模型，并以模拟服务兜底。
func newEscalator(ctx context.Context, cfg *config.Config, bot persona.Persona) remote.Escalator {
	simulated := remote.NewSimulated(cfg.Chat.SimulatedLatency)
	if !cfg.AI.Enabled() {
		slog.Info("Ark credentials not configured, using simulated escalation")
		return simulated
	}

	chatModel, err := cfg.AI.NewChatModel(ctx)
	if err != nil {
		slog.Warn("failed to create Ark chat model, using simulated escalation", "error", err)
		return simulated
	}

	aiService, err := ai.NewService(ctx, chatModel, bot)
	if err != nil {
		slog.Warn("failed to initialize AI service, using simulated escalation", "error", err)
		return simulated
	}

	slog.Info("AI escalation initialized", "model", cfg.AI.Model)
	return remote.NewFallback(aiService, simulated)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	slog.Info("Chattia backend listening", "addr", addr)
	if err := runServer(ctx, srv); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
