package httpapi

import (
	"errors"
	"net/http"

	"radwatch/internal/service"

	"go.uber.org/zap"
)

// ThresholdHandler 阈值配置管理 Handler
type ThresholdHandler struct {
	thresholdService service.ThresholdService
	logger           *zap.Logger
}

// NewThresholdHandler 创建阈值配置管理 Handler
func NewThresholdHandler(thresholdService service.ThresholdService, logger *zap.Logger) *ThresholdHandler {
	return &ThresholdHandler{
		thresholdService: thresholdService,
		logger:           logger,
	}
}

// ServeHTTP 实现 http.Handler 接口
func (h *ThresholdHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/v1/thresholds" && r.Method == http.MethodGet:
		h.ListConfigs(w, r)
	case r.URL.Path == "/api/v1/thresholds" && r.Method == http.MethodPut:
		h.UpsertConfig(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type thresholdPayload struct {
	Block     string  `json:"block"`
	Plant     string  `json:"plant"`
	Area      string  `json:"area"`
	NearLimit float64 `json:"near_limit"`
	FarLimit  float64 `json:"far_limit"`
	Severity  string  `json:"severity"`
	IsActive  bool    `json:"is_active"`
}

// UpsertConfig 写入阈值配置（按标识 upsert，不支持删除）
func (h *ThresholdHandler) UpsertConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payload thresholdPayload
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	err := h.thresholdService.UpsertConfig(ctx, service.UpsertThresholdRequest{
		Block:     payload.Block,
		Plant:     payload.Plant,
		Area:      payload.Area,
		NearLimit: payload.NearLimit,
		FarLimit:  payload.FarLimit,
		Severity:  payload.Severity,
		IsActive:  payload.IsActive,
	})
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
			return
		}
		h.logger.Error("UpsertConfig failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, Ok(map[string]any{"saved": true}))
}

// ListConfigs 查询全部阈值配置
func (h *ThresholdHandler) ListConfigs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	configs, err := h.thresholdService.ListConfigs(ctx)
	if err != nil {
		h.logger.Error("ListConfigs failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, Ok(configs))
}
