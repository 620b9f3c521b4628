package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/chattia/backend/internal/handler/chat"
	"github.com/zhouzirui/chattia/backend/internal/handler/persona"
	"github.com/zhouzirui/chattia/backend/internal/handler/preference"
	"github.com/zhouzirui/chattia/backend/internal/handler/socket"
	"github.com/zhouzirui/chattia/backend/internal/handler/stream"
	"github.com/zhouzirui/chattia/backend/internal/logging"
	middlewarePkg "github.com/zhouzirui/chattia/backend/internal/middleware"
	personaModel "github.com/zhouzirui/chattia/backend/internal/model/persona"
	preferenceModel "github.com/zhouzirui/chattia/backend/internal/model/preference"
	chatService "github.com/zhouzirui/chattia/backend/internal/service/chat"
	"github.com/zhouzirui/chattia/backend/pkg/utils"
)

// NewRouter 将 HTTP 路由绑定到核心服务。
func NewRouter(personas personaModel.Store, chatSvc *chatService.Service, prefs preferenceModel.Store, replyDelay time.Duration) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger(logging.Component("http")))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	personaHandler := persona.New(personas)
	chatHandler := chat.New(chatSvc, replyDelay)
	preferenceHandler := preference.New(prefs)
	streamHandler := stream.New(chatSvc, replyDelay)
	socketHandler := socket.New(chatSvc, personas, prefs, replyDelay)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		personaHandler.RegisterRoutes(api)
		chatHandler.RegisterRoutes(api)
		preferenceHandler.RegisterRoutes(api)
		socketHandler.RegisterRoutes(api)

		api.Get("/stream/{sessionID}", func(w http.ResponseWriter, r *http.Request) {
			sessionID := chi.URLParam(r, "sessionID")
			userMessage := r.URL.Query().Get("message")

			if userMessage == "" {
				utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
				return
			}

			err := streamHandler.HandleStreamRequest(r.Context(), w, sessionID, userMessage)
			switch {
			case err == nil:
			case errors.Is(err, chatService.ErrSessionNotFound):
				utils.RespondError(w, http.StatusNotFound, err.Error())
			case errors.Is(err, stream.ErrStreamingUnsupported):
				utils.RespondError(w, http.StatusInternalServerError, err.Error())
			default:
				logging.Component("stream").Warn("stream write failed", "session", sessionID, "error", err)
			}
		})
	})

	return r
}
