package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/zhouzirui/chattia/backend/internal/analysis/rules"
	"github.com/zhouzirui/chattia/backend/internal/model/chat"
	"github.com/zhouzirui/chattia/backend/internal/model/persona"
	chatservice "github.com/zhouzirui/chattia/backend/internal/service/chat"
	"github.com/zhouzirui/chattia/backend/internal/service/remote"
	"github.com/zhouzirui/chattia/backend/internal/service/reply"
)

type frame struct {
	event string
	data  Event
}

func parseFrames(t *testing.T, body string) []frame {
	t.Helper()
	var frames []frame
	var current frame
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			current.event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &current.data); err != nil {
				t.Fatalf("decode frame: %v", err)
			}
		case line == "":
			frames = append(frames, current)
			current = frame{}
		}
	}
	return frames
}

func newHandler() (*Handler, *chatservice.Service) {
	resolver := reply.NewResolver(rules.Default("Chattia"), remote.NewSimulated(0))
	chatSvc := chatservice.NewService(persona.NewMemoryStore(persona.Seed()), resolver)
	return New(chatSvc, 0), chatSvc
}

func TestHandleStreamRequestEmitsExchange(t *testing.T) {
	handler, chatSvc := newHandler()
	ctx := context.Background()

	session, err := chatSvc.CreateSession(ctx, persona.DefaultID)
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	rec := httptest.NewRecorder()
	if err := handler.HandleStreamRequest(ctx, rec, session.ID, "tell me a story"); err != nil {
		t.Fatalf("HandleStreamRequest err: %v", err)
	}

	frames := parseFrames(t, rec.Body.String())
	var events []string
	for _, f := range frames {
		events = append(events, f.event)
	}
	if got := strings.Join(events, ","); got != "start,user,message,end" {
		t.Fatalf("unexpected event sequence %q", got)
	}

	bot := frames[2].data
	if bot.Message == nil || bot.Message.Sender != chat.SenderBot {
		t.Fatalf("expected bot message, got %+v", bot)
	}
	if !bot.Escalated || !strings.Contains(bot.Message.Text, "tell me a story") {
		t.Fatalf("expected escalated reply embedding the query, got %+v", bot)
	}
}

func TestHandleStreamRequestUnknownSession(t *testing.T) {
	handler, _ := newHandler()

	err := handler.HandleStreamRequest(context.Background(), httptest.NewRecorder(), "missing", "hi")
	if !errors.Is(err, chatservice.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestHandleStreamRequestBlankMessageSendsErrorEvent(t *testing.T) {
	handler, chatSvc := newHandler()
	session, _ := chatSvc.CreateSession(context.Background(), persona.DefaultID)

	rec := httptest.NewRecorder()
	if err := handler.HandleStreamRequest(context.Background(), rec, session.ID, "   "); err != nil {
		t.Fatalf("HandleStreamRequest err: %v", err)
	}

	frames := parseFrames(t, rec.Body.String())
	if len(frames) != 2 || frames[1].event != "error" {
		t.Fatalf("expected start,error frames, got %+v", frames)
	}
}

type noFlushWriter struct{ http.ResponseWriter }

func TestHandleStreamRequestRequiresFlusher(t *testing.T) {
	handler, _ := newHandler()
	w := noFlushWriter{httptest.NewRecorder()}

	if err := handler.HandleStreamRequest(context.Background(), w, "any", "hi"); !errors.Is(err, ErrStreamingUnsupported) {
		t.Fatalf("expected ErrStreamingUnsupported, got %v", err)
	}
}

func TestHandleStreamRequestStoresReplyWhenClientLeaves(t *testing.T) {
	resolver := reply.NewResolver(rules.Default("Chattia"), remote.NewSimulated(0))
	chatSvc := chatservice.NewService(persona.NewMemoryStore(persona.Seed()), resolver)
	handler := New(chatSvc, 200*time.Millisecond)
	session, _ := chatSvc.CreateSession(context.Background(), persona.DefaultID)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	rec := httptest.NewRecorder()
	if err := handler.HandleStreamRequest(ctx, rec, session.ID, "hi"); err != nil {
		t.Fatalf("HandleStreamRequest err: %v", err)
	}

	for _, f := range parseFrames(t, rec.Body.String()) {
		if f.event == "message" {
			t.Fatalf("bot frame must not be sent after the client left: %+v", f)
		}
	}

	transcript, _ := chatSvc.LoadTranscript(context.Background(), session.ID)
	if len(transcript) != 3 || transcript[2].Sender != chat.SenderBot {
		t.Fatalf("expected stored reply, got %+v", transcript)
	}
}
