package chat

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/chattia/backend/internal/logging"
	"github.com/zhouzirui/chattia/backend/internal/model/chat"
	chatService "github.com/zhouzirui/chattia/backend/internal/service/chat"
	"github.com/zhouzirui/chattia/backend/internal/service/reply"
	"github.com/zhouzirui/chattia/backend/pkg/utils"
)

// Handler 聊天服务的HTTP处理器
type Handler struct {
	chatSvc    *chatService.Service
	replyDelay time.Duration
	log        *slog.Logger
}

// New 创建聊天处理器
func New(chatSvc *chatService.Service, replyDelay time.Duration) *Handler {
	return &Handler{
		chatSvc:    chatSvc,
		replyDelay: replyDelay,
		log:        logging.Component("chat"),
	}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/session", h.handleCreateSession)
	r.Get("/session/{sessionID}/messages", h.handleTranscript)
	r.Post("/messages", h.handleSendMessage)
}

type exchangeResponse struct {
	reply.Reply
	UserMessage chat.Message `json:"userMessage"`
	BotMessage  chat.Message `json:"botMessage"`
}

// handleCreateSession 创建会话
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		PersonaID string `json:"personaId"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.chatSvc.CreateSession(r.Context(), payload.PersonaID)
	if err != nil {
		utils.RespondError(w, statusFor(err), err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusCreated, session)
}

// handleTranscript 返回会话消息记录
func (h *Handler) handleTranscript(w http.ResponseWriter, r *http.Request) {
	messages, err := h.chatSvc.LoadTranscript(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		utils.RespondError(w, statusFor(err), err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, messages)
}

// handleSendMessage 记录用户消息，解析回复，并在展示延迟后保存机器人消息
func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SessionID string `json:"sessionId"`
		Text      string `json:"text"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx := r.Context()
	userMsg, result, err := h.chatSvc.Exchange(ctx, payload.SessionID, payload.Text)
	if err != nil {
		if isClientGone(err) {
			h.log.Debug("client left before reply", "session", payload.SessionID)
			return
		}
		utils.RespondError(w, statusFor(err), err.Error())
		return
	}

	// 客户端提前断开时仍需落库回复
	paceErr := utils.Pace(ctx, h.replyDelay)
	botMsg, err := h.chatSvc.SaveReply(context.WithoutCancel(ctx), payload.SessionID, result)
	if paceErr != nil {
		h.log.Debug("client left during pacing", "session", payload.SessionID)
		return
	}
	if err != nil {
		utils.RespondError(w, statusFor(err), err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, exchangeResponse{
		Reply:       result,
		UserMessage: userMsg,
		BotMessage:  botMsg,
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, chatService.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, chatService.ErrPersonaNotFound),
		errors.Is(err, chatService.ErrEmptyMessage),
		errors.Is(err, chatService.ErrInvalidSender):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func isClientGone(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
