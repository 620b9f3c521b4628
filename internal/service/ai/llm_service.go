package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/chattia/backend/internal/logging"
	"github.com/zhouzirui/chattia/backend/internal/model/persona"
)

// ErrEmptyResponse 表示模型返回了空内容。
var ErrEmptyResponse = errors.New("model returned an empty response")

// Service 通过 eino 链把问题交给大模型回答，实现 remote.Escalator。
type Service struct {
	chain   compose.Runnable[map[string]any, *schema.Message]
	persona persona.Persona
}

// NewService 为指定角色编译 prompt -> model 链。
func NewService(ctx context.Context, chatModel model.BaseChatModel, p persona.Persona) (*Service, error) {
	if chatModel == nil {
		return nil, errors.New("chat model is required")
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &Service{chain: runnable, persona: p}, nil
}

// Submit 让模型以助手身份回答问题。
func (s *Service) Submit(ctx context.Context, query string) (string, error) {
	input := map[string]any{
		"system": buildSystemPrompt(s.persona),
		"query":  query,
	}

	response, err := s.chain.Invoke(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to run AI chain: %w", err)
	}

	content := ""
	if response != nil {
		content = strings.TrimSpace(response.Content)
	}
	if content == "" {
		return "", ErrEmptyResponse
	}

	logging.Component("ai").Debug("generated escalation reply", "persona", s.persona.ID, "length", len(content))
	return content, nil
}

// buildSystemPrompt 生成描述助手身份的系统提示词
func buildSystemPrompt(p persona.Persona) string {
	var builder strings.Builder
	name := strings.TrimSpace(p.Name)
	if name == "" {
		name = "the assistant"
	}
	fmt.Fprintf(&builder, "You are %s", name)
	if title := strings.TrimSpace(p.Title); title != "" {
		fmt.Fprintf(&builder, ", a %s", strings.ToLower(title))
	}
	builder.WriteString(".")
	if desc := strings.TrimSpace(p.Description); desc != "" {
		builder.WriteString(" ")
		builder.WriteString(desc)
	}
	builder.WriteString("\nSimple greetings and small talk were already handled elsewhere; the user is asking something that needs a thoughtful answer. Reply in plain text, in at most a few short paragraphs.")
	return builder.String()
}
