package httpapi

import (
	"errors"
	"net/http"

	"radwatch/internal/repository"
	"radwatch/internal/service"

	"go.uber.org/zap"
)

// SubscriberHandler 订阅者通知偏好 Handler
type SubscriberHandler struct {
	subscriberService service.SubscriberService
	logger            *zap.Logger
}

// NewSubscriberHandler 创建订阅者偏好 Handler
func NewSubscriberHandler(subscriberService service.SubscriberService, logger *zap.Logger) *SubscriberHandler {
	return &SubscriberHandler{
		subscriberService: subscriberService,
		logger:            logger,
	}
}

// ServeHTTP 实现 http.Handler 接口
func (h *SubscriberHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/v1/preferences" && r.Method == http.MethodGet:
		h.GetPreference(w, r)
	case r.URL.Path == "/api/v1/preferences" && r.Method == http.MethodPut:
		h.UpsertPreference(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type preferencePayload struct {
	SubscriberID string   `json:"subscriber_id"`
	EmailEnabled bool     `json:"email_enabled"`
	SMSEnabled   bool     `json:"sms_enabled"`
	Severities   []string `json:"severities"`
}

// GetPreference 查询订阅者通知偏好（?subscriber_id=）
func (h *SubscriberHandler) GetPreference(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	pref, err := h.subscriberService.GetPreference(ctx, r.URL.Query().Get("subscriber_id"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
		case errors.Is(err, repository.ErrNotFound):
			writeJSON(w, http.StatusNotFound, Fail(err.Error()))
		default:
			h.logger.Error("GetPreference failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, Fail(err.Error()))
		}
		return
	}

	writeJSON(w, http.StatusOK, Ok(pref))
}

// UpsertPreference 写入订阅者通知偏好
func (h *SubscriberHandler) UpsertPreference(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payload preferencePayload
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	err := h.subscriberService.UpsertPreference(ctx, service.UpsertPreferenceRequest{
		SubscriberID: payload.SubscriberID,
		EmailEnabled: payload.EmailEnabled,
		SMSEnabled:   payload.SMSEnabled,
		Severities:   payload.Severities,
	})
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
			return
		}
		h.logger.Error("UpsertPreference failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, Ok(map[string]any{"saved": true}))
}
