package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/chattia/backend/internal/model/chat"
	"github.com/zhouzirui/chattia/backend/internal/model/persona"
	"github.com/zhouzirui/chattia/backend/internal/service/reply"
)

var (
	ErrPersonaNotFound = errors.New("persona not found")
	ErrSessionNotFound = errors.New("session not found")
	ErrEmptyMessage    = errors.New("message text is required")
	ErrInvalidSender   = errors.New("invalid sender")
)

// Resolver 为用户消息生成机器人回复。
type Resolver interface {
	Resolve(ctx context.Context, input string) (reply.Reply, error)
}

// Service 封装会话状态管理。
type Service struct {
	personas persona.Store
	resolver Resolver

	mu       sync.RWMutex
	sessions map[string]chat.Session
	messages map[string][]chat.Message
}

// NewService 创建内存版聊天服务。
func NewService(personas persona.Store, resolver Resolver) *Service {
	return &Service{
		personas: personas,
		resolver: resolver,
		sessions: make(map[string]chat.Session),
		messages: make(map[string][]chat.Message),
	}
}

// CreateSession 创建匿名会话并写入角色开场白作为第一条机器人消息。
// 未指定角色时使用 persona.DefaultID。
func (s *Service) CreateSession(_ context.Context, personaID string) (chat.Session, error) {
	if personaID == "" {
		personaID = persona.DefaultID
	}

	p, ok := s.personas.FindByID(personaID)
	if !ok {
		return chat.Session{}, ErrPersonaNotFound
	}

	now := time.Now().UTC()
	session := chat.Session{
		ID:        uuid.NewString(),
		PersonaID: personaID,
		CreatedAt: now,
	}

	log := make([]chat.Message, 0, 16)
	if p.OpeningLine != "" {
		log = append(log, chat.Message{
			ID:        uuid.NewString(),
			SessionID: session.ID,
			Sender:    chat.SenderBot,
			Text:      p.OpeningLine,
			CreatedAt: now,
		})
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.messages[session.ID] = log
	s.mu.Unlock()

	return session, nil
}

// SaveMessage 将消息追加到会话记录，并返回带 ID 和时间戳的消息。
func (s *Service) SaveMessage(_ context.Context, message chat.Message) (chat.Message, error) {
	if message.SessionID == "" {
		return chat.Message{}, ErrSessionNotFound
	}
	if !message.Sender.Valid() {
		return chat.Message{}, fmt.Errorf("%w: %q", ErrInvalidSender, message.Sender)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[message.SessionID]; !ok {
		return chat.Message{}, ErrSessionNotFound
	}

	message.ID = uuid.NewString()
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}

	s.messages[message.SessionID] = append(s.messages[message.SessionID], message)
	return message, nil
}

// GetSession 根据 ID 获取会话。
func (s *Service) GetSession(_ context.Context, sessionID string) (chat.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return chat.Session{}, ErrSessionNotFound
	}
	return session, nil
}

// LoadTranscript 返回会话消息记录的副本。
func (s *Service) LoadTranscript(_ context.Context, sessionID string) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages, ok := s.messages[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	copied := make([]chat.Message, len(messages))
	copy(copied, messages)
	return copied, nil
}

// Submit 校验并追加一条用户消息。
func (s *Service) Submit(ctx context.Context, sessionID, text string) (chat.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return chat.Message{}, ErrEmptyMessage
	}

	return s.SaveMessage(ctx, chat.Message{
		SessionID: sessionID,
		Sender:    chat.SenderUser,
		Text:      text,
	})
}

// Answer 为已保存的用户消息解析回复。成功时由调用方在展示延迟后调用 SaveReply；
// 若 ctx 在解析完成前结束，则直接记录降级回复并返回 ctx 错误，保证每条用户消息都有且仅有一条回复。
func (s *Service) Answer(ctx context.Context, userMsg chat.Message) (reply.Reply, error) {
	result, err := s.resolver.Resolve(ctx, userMsg.Text)
	if err == nil {
		return result, nil
	}

	err = fmt.Errorf("resolve reply: %w", err)
	if _, saveErr := s.SaveReply(context.WithoutCancel(ctx), userMsg.SessionID, reply.Unavailable()); saveErr != nil {
		return reply.Reply{}, errors.Join(err, saveErr)
	}
	return reply.Reply{}, err
}

// Exchange 依次执行 Submit 与 Answer。
func (s *Service) Exchange(ctx context.Context, sessionID, text string) (chat.Message, reply.Reply, error) {
	userMsg, err := s.Submit(ctx, sessionID, text)
	if err != nil {
		return chat.Message{}, reply.Reply{}, err
	}

	result, err := s.Answer(ctx, userMsg)
	if err != nil {
		return userMsg, reply.Reply{}, err
	}
	return userMsg, result, nil
}

// SaveReply 追加已解析回复对应的机器人消息。
func (s *Service) SaveReply(ctx context.Context, sessionID string, r reply.Reply) (chat.Message, error) {
	return s.SaveMessage(ctx, chat.Message{
		SessionID: sessionID,
		Sender:    chat.SenderBot,
		Text:      r.Text,
	})
}
