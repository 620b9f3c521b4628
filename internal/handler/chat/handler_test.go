package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/chattia/backend/internal/analysis/rules"
	model "github.com/zhouzirui/chattia/backend/internal/model/chat"
	"github.com/zhouzirui/chattia/backend/internal/model/persona"
	chatservice "github.com/zhouzirui/chattia/backend/internal/service/chat"
	"github.com/zhouzirui/chattia/backend/internal/service/remote"
	"github.com/zhouzirui/chattia/backend/internal/service/reply"
)

func setupRouter() (*chi.Mux, *chatservice.Service) {
	return setupPacedRouter(0)
}

func setupPacedRouter(replyDelay time.Duration) (*chi.Mux, *chatservice.Service) {
	resolver := reply.NewResolver(rules.Default("Chattia"), remote.NewSimulated(0))
	chatSvc := chatservice.NewService(persona.NewMemoryStore(persona.Seed()), resolver)
	handler := New(chatSvc, replyDelay)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r, chatSvc
}

func post(r http.Handler, path string, body any) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestCreateSessionValidPersona(t *testing.T) {
	r, _ := setupRouter()
	resp := post(r, "/session", map[string]string{"personaId": persona.DefaultID})

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}
}

func TestCreateSessionInvalidPersona(t *testing.T) {
	r, _ := setupRouter()
	resp := post(r, "/session", map[string]string{"personaId": "non-existent"})

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestCreateSessionMissingPersonaIDUsesDefault(t *testing.T) {
	r, _ := setupRouter()
	resp := post(r, "/session", map[string]string{})

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}
	var session model.Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if session.PersonaID != persona.DefaultID {
		t.Fatalf("expected default persona, got %q", session.PersonaID)
	}
}

func TestSendMessageReturnsReply(t *testing.T) {
	r, chatSvc := setupRouter()
	session, err := chatSvc.CreateSession(context.Background(), persona.DefaultID)
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	resp := post(r, "/messages", map[string]string{"sessionId": session.ID, "text": "please convert 20 celsius to fahrenheit"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var body exchangeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Rule != "conversion" {
		t.Fatalf("unexpected rule %q", body.Rule)
	}
	if body.BotMessage.Sender != model.SenderBot || body.BotMessage.Text != body.Text {
		t.Fatalf("unexpected bot message: %+v", body.BotMessage)
	}

	transcript, _ := chatSvc.LoadTranscript(context.Background(), session.ID)
	if len(transcript) != 3 {
		t.Fatalf("expected greeting + user + bot, got %d messages", len(transcript))
	}
	if transcript[1].Sender != model.SenderUser || transcript[2].Sender != model.SenderBot {
		t.Fatalf("unexpected transcript order: %+v", transcript)
	}
}

func TestSendMessageErrors(t *testing.T) {
	r, chatSvc := setupRouter()
	session, _ := chatSvc.CreateSession(context.Background(), persona.DefaultID)

	if resp := post(r, "/messages", map[string]string{"sessionId": session.ID, "text": "   "}); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank text, got %d", resp.Code)
	}
	if resp := post(r, "/messages", map[string]string{"sessionId": "missing", "text": "hi"}); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown session, got %d", resp.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/messages", bytes.NewReader([]byte("{")))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", resp.Code)
	}
}

func TestTranscript(t *testing.T) {
	r, chatSvc := setupRouter()
	session, _ := chatSvc.CreateSession(context.Background(), persona.DefaultID)

	req := httptest.NewRequest(http.MethodGet, "/session/"+session.ID+"/messages", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var messages []model.Message
	if err := json.NewDecoder(resp.Body).Decode(&messages); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(messages) != 1 || messages[0].Sender != model.SenderBot {
		t.Fatalf("expected greeting only, got %+v", messages)
	}

	req = httptest.NewRequest(http.MethodGet, "/session/missing/messages", nil)
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestSendMessageStoresReplyWhenClientLeavesDuringPacing(t *testing.T) {
	r, chatSvc := setupPacedRouter(200 * time.Millisecond)
	session, _ := chatSvc.CreateSession(context.Background(), persona.DefaultID)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	payload, _ := json.Marshal(map[string]string{"sessionId": session.ID, "text": "hi"})
	req := httptest.NewRequest(http.MethodPost, "/messages", bytes.NewReader(payload)).WithContext(ctx)
	r.ServeHTTP(httptest.NewRecorder(), req)

	transcript, _ := chatSvc.LoadTranscript(context.Background(), session.ID)
	if len(transcript) != 3 {
		t.Fatalf("expected greeting + user + bot, got %+v", transcript)
	}
	if transcript[1].Text != "hi" || transcript[2].Sender != model.SenderBot {
		t.Fatalf("expected user message answered, got %+v", transcript)
	}
}
