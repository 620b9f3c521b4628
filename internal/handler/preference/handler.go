package preference

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/chattia/backend/internal/model/preference"
	"github.com/zhouzirui/chattia/backend/pkg/utils"
)

// Handler 提供主题偏好接口
type Handler struct {
	store preference.Store
}

// New 创建偏好处理器
func New(store preference.Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes 注册偏好相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/preferences/"+preference.DarkModeKey, h.handleGet)
	r.Put("/preferences/"+preference.DarkModeKey, h.handlePut)
}

type darkModePayload struct {
	Key   string `json:"key"`
	Value *bool  `json:"value"`
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	value := h.store.DarkMode()
	utils.RespondJSON(w, http.StatusOK, darkModePayload{Key: preference.DarkModeKey, Value: &value})
}

func (h *Handler) handlePut(w http.ResponseWriter, r *http.Request) {
	var payload darkModePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Value == nil {
		utils.RespondError(w, http.StatusBadRequest, "value is required")
		return
	}

	h.store.SetDarkMode(*payload.Value)
	utils.RespondJSON(w, http.StatusOK, darkModePayload{Key: preference.DarkModeKey, Value: payload.Value})
}
