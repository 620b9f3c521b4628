package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/zhouzirui/chattia/backend/internal/logging"
	"github.com/zhouzirui/chattia/backend/internal/model/chat"
	chatService "github.com/zhouzirui/chattia/backend/internal/service/chat"
	"github.com/zhouzirui/chattia/backend/pkg/utils"
)

// ErrStreamingUnsupported 表示响应无法 flush。
var ErrStreamingUnsupported = errors.New("streaming unsupported")

// Handler 以 SSE 形式推送一次对话：用户消息立即推送，
// 机器人消息在展示延迟后推送。
type Handler struct {
	chatSvc    *chatService.Service
	replyDelay time.Duration
	log        *slog.Logger
}

// New 创建流式处理器
func New(chatSvc *chatService.Service, replyDelay time.Duration) *Handler {
	return &Handler{
		chatSvc:    chatSvc,
		replyDelay: replyDelay,
		log:        logging.Component("stream"),
	}
}

// Event 是每个 SSE 帧的数据
type Event struct {
	SessionID string        `json:"sessionId,omitempty"`
	Message   *chat.Message `json:"message,omitempty"`
	Rule      string        `json:"rule,omitempty"`
	Escalated bool          `json:"escalated,omitempty"`
	Degraded  bool          `json:"degraded,omitempty"`
	Finished  bool          `json:"finished,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// HandleStreamRequest 处理会话中的一条用户消息
func (h *Handler) HandleStreamRequest(ctx context.Context, w http.ResponseWriter, sessionID string, userMessage string) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return ErrStreamingUnsupported
	}

	if _, err := h.chatSvc.GetSession(ctx, sessionID); err != nil {
		return err
	}

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	if err := utils.SendSSEEvent(w, flusher, "start", Event{SessionID: sessionID}); err != nil {
		return err
	}

	userMsg, result, err := h.chatSvc.Exchange(ctx, sessionID, userMessage)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		h.sendError(w, flusher, sessionID, err)
		return nil
	}

	if err := utils.SendSSEEvent(w, flusher, "user", Event{SessionID: sessionID, Message: &userMsg}); err != nil {
		return err
	}

	paceErr := utils.Pace(ctx, h.replyDelay)
	botMsg, err := h.chatSvc.SaveReply(context.WithoutCancel(ctx), sessionID, result)
	if paceErr != nil {
		return nil
	}
	if err != nil {
		h.sendError(w, flusher, sessionID, err)
		return nil
	}

	if err := utils.SendSSEEvent(w, flusher, "message", Event{
		SessionID: sessionID,
		Message:   &botMsg,
		Rule:      result.Rule,
		Escalated: result.Escalated,
		Degraded:  result.Degraded,
	}); err != nil {
		return err
	}

	if err := utils.SendSSEEvent(w, flusher, "end", Event{SessionID: sessionID, Finished: true}); err != nil {
		return err
	}

	h.log.Debug("completed stream", "session", sessionID, "rule", result.Rule)
	return nil
}

func (h *Handler) sendError(w http.ResponseWriter, flusher http.Flusher, sessionID string, err error) {
	h.log.Warn("stream exchange failed", "session", sessionID, "error", err)
	_ = utils.SendSSEEvent(w, flusher, "error", Event{
		SessionID: sessionID,
		Error:     fmt.Sprintf("exchange failed: %v", err),
	})
}
