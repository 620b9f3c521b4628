package socket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/chattia/backend/internal/logging"
	"github.com/zhouzirui/chattia/backend/internal/model/chat"
	"github.com/zhouzirui/chattia/backend/internal/model/persona"
	"github.com/zhouzirui/chattia/backend/internal/model/preference"
	chatservice "github.com/zhouzirui/chattia/backend/internal/service/chat"
	"github.com/zhouzirui/chattia/backend/internal/widget"
	"github.com/zhouzirui/chattia/backend/pkg/utils"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second
	// queueSize 为每个连接待回复消息的缓冲上限，满时读循环阻塞。
	queueSize = 32
)

// Handler 通过 WebSocket 提供聊天窗口服务。每个连接持有独立的窗口状态，
// 收到的事件经 reducer 更新状态后推送回浏览器。
type Handler struct {
	chatSvc      *chatservice.Service
	personaStore persona.Store
	prefs        preference.Store
	replyDelay   time.Duration
	upgrader     websocket.Upgrader
	log          *slog.Logger
}

// New 创建 WebSocket 处理器
func New(chatSvc *chatservice.Service, personaStore persona.Store, prefs preference.Store, replyDelay time.Duration) *Handler {
	return &Handler{
		chatSvc:      chatSvc,
		personaStore: personaStore,
		prefs:        prefs,
		replyDelay:   replyDelay,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		log: logging.Component("socket"),
	}
}

// RegisterRoutes 注册 WebSocket 路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

type inboundMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
}

// TextMessage 是 text 与 draft 消息携带的文本
type TextMessage struct {
	Text string `json:"text"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// conn 串行化写操作，gorilla 只允许一个并发写者
type conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *conn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.ws.WriteJSON(v)
}

type connection struct {
	sessionID string
	conn      *conn
	store     *widget.Store
	// queue 按提交顺序保存已落库的用户消息，由唯一的回复协程消费。
	queue  chan chat.Message
	worker sync.WaitGroup
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	session, err := h.chatSvc.GetSession(r.Context(), sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}

	p, ok := h.personaStore.FindByID(session.PersonaID)
	if !ok {
		utils.RespondError(w, http.StatusBadRequest, "persona not found")
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("upgrade failed", "error", err)
		return
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(r.Context())
	c := &connection{
		sessionID: sessionID,
		conn:      &conn{ws: ws},
		store:     widget.NewStore(widget.NewState(p.OpeningLine, h.prefs.DarkMode())),
		queue:     make(chan chat.Message, queueSize),
	}

	c.worker.Add(1)
	go func() {
		defer c.worker.Done()
		h.replyLoop(ctx, c)
	}()

	// 读循环是队列唯一的写入方，退出后关闭队列并等待剩余回复落库
	defer func() {
		cancel()
		close(c.queue)
		c.worker.Wait()
	}()

	h.log.Info("connection opened", "session", sessionID)

	_ = ws.SetReadDeadline(time.Now().Add(readTimeout))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(readTimeout))
	})

	go h.pingLoop(ctx, ws)

	h.send(c, "connected", map[string]any{
		"persona": p.ID,
		"state":   c.store.Snapshot(),
	})

	for {
		var msg inboundMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn("read error", "session", sessionID, "error", err)
			}
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(readTimeout))

		if msg.SessionID != "" && msg.SessionID != sessionID {
			h.sendError(c, "session mismatch")
			continue
		}

		h.handleMessage(ctx, c, &msg)
	}
}

func (h *Handler) handleMessage(ctx context.Context, c *connection, msg *inboundMessage) {
	switch msg.Type {
	case "text":
		var text TextMessage
		if err := json.Unmarshal(msg.Data, &text); err != nil {
			h.sendError(c, "invalid text payload")
			return
		}
		c.store.Dispatch(widget.DraftChanged{Text: text.Text})
		h.submit(ctx, c)
	case "draft":
		var text TextMessage
		if err := json.Unmarshal(msg.Data, &text); err != nil {
			h.sendError(c, "invalid draft payload")
			return
		}
		c.store.Dispatch(widget.DraftChanged{Text: text.Text})
	case "submit":
		h.submit(ctx, c)
	case "theme":
		_, next := c.store.Dispatch(widget.ThemeToggled{})
		h.prefs.SetDarkMode(next.DarkMode)
		h.send(c, "theme", map[string]any{"darkMode": next.DarkMode})
	default:
		h.sendError(c, "unsupported message type: "+msg.Type)
	}
}

// submit 发送当前草稿。用户消息在读循环中同步落库，回复交给 replyLoop 按顺序生成，
// 等待期间连接仍可处理草稿与主题切换。
func (h *Handler) submit(ctx context.Context, c *connection) {
	prev, next := c.store.Dispatch(widget.Submitted{})
	if len(next.Messages) == len(prev.Messages) {
		return
	}
	pending, _ := next.Last()

	userMsg, err := h.chatSvc.Submit(ctx, c.sessionID, pending.Text)
	if err != nil {
		h.log.Warn("submit failed", "session", c.sessionID, "error", err)
		h.sendError(c, err.Error())
		return
	}

	h.send(c, "user", map[string]any{"message": pending, "pending": next.Pending})
	c.queue <- userMsg
}

// replyLoop 依次为队列中的用户消息生成回复。连接关闭后仍会排空队列，
// 保证每条已保存的用户消息都有对应回复。
func (h *Handler) replyLoop(ctx context.Context, c *connection) {
	for userMsg := range c.queue {
		h.deliverReply(ctx, c, userMsg)
	}
}

func (h *Handler) deliverReply(ctx context.Context, c *connection, userMsg chat.Message) {
	result, err := h.chatSvc.Answer(ctx, userMsg)
	if err != nil {
		if ctx.Err() == nil {
			h.log.Warn("answer failed", "session", c.sessionID, "error", err)
			h.sendError(c, err.Error())
		}
		return
	}

	paceErr := utils.Pace(ctx, h.replyDelay)
	if _, err := h.chatSvc.SaveReply(context.WithoutCancel(ctx), c.sessionID, result); err != nil {
		h.log.Warn("save reply failed", "session", c.sessionID, "error", err)
	}
	if paceErr != nil {
		return
	}

	_, next := c.store.Dispatch(widget.ReplyReceived{Text: result.Text})
	botMsg, _ := next.Last()
	h.send(c, "bot", map[string]any{
		"message":   botMsg,
		"rule":      result.Rule,
		"escalated": result.Escalated,
		"degraded":  result.Degraded,
		"pending":   next.Pending,
	})
}

func (h *Handler) send(c *connection, kind string, data map[string]any) {
	payload := map[string]any{"type": kind}
	for k, v := range data {
		payload[k] = v
	}
	msg := outgoingMessage{
		Type:      "result",
		SessionID: c.sessionID,
		Data:      payload,
		Timestamp: time.Now().Unix(),
	}
	if err := c.conn.writeJSON(msg); err != nil {
		h.log.Debug("write result failed", "session", c.sessionID, "error", err)
	}
}

func (h *Handler) sendError(c *connection, message string) {
	msg := outgoingMessage{
		Type:      "error",
		SessionID: c.sessionID,
		Data:      map[string]string{"message": message},
		Timestamp: time.Now().Unix(),
	}
	if err := c.conn.writeJSON(msg); err != nil {
		h.log.Debug("write error failed", "session", c.sessionID, "error", err)
	}
}

// pingLoop 定期发送ping消息
func (h *Handler) pingLoop(ctx context.Context, ws *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}
