package httpapi

import (
	"errors"
	"net/http"

	"radwatch/internal/repository"
	"radwatch/internal/service"

	"go.uber.org/zap"
)

// AlertHandler 报警 Handler（人工报警、确认、历史查询）
type AlertHandler struct {
	alertService service.AlertService
	logger       *zap.Logger
}

// NewAlertHandler 创建报警 Handler
func NewAlertHandler(alertService service.AlertService, logger *zap.Logger) *AlertHandler {
	return &AlertHandler{
		alertService: alertService,
		logger:       logger,
	}
}

type manualAlertPayload struct {
	Severity    string `json:"severity"`
	Block       string `json:"block"`
	Plant       string `json:"plant"`
	Area        string `json:"area"`
	Message     string `json:"message"`
	SubmitterID string `json:"submitter_id"`
}

// CreateManualAlert 人工发布报警
func (h *AlertHandler) CreateManualAlert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payload manualAlertPayload
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	alert, err := h.alertService.CreateManualAlert(ctx, service.ManualAlertRequest{
		Severity:    payload.Severity,
		Block:       payload.Block,
		Plant:       payload.Plant,
		Area:        payload.Area,
		Message:     payload.Message,
		SubmitterID: payload.SubmitterID,
	})
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
			return
		}
		h.logger.Error("CreateManualAlert failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, Ok(alert))
}

type acknowledgePayload struct {
	AlertID        string `json:"alert_id"`
	AcknowledgerID string `json:"acknowledger_id"`
}

// AcknowledgeAlert 确认报警
// 重复确认返回已确认错误，不覆盖首次确认
func (h *AlertHandler) AcknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payload acknowledgePayload
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	err := h.alertService.Acknowledge(ctx, payload.AlertID, payload.AcknowledgerID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
		case errors.Is(err, repository.ErrNotFound):
			writeJSON(w, http.StatusNotFound, Fail(err.Error()))
		case errors.Is(err, repository.ErrAlreadyAcknowledged):
			writeJSON(w, http.StatusConflict, Fail(err.Error()))
		default:
			h.logger.Error("AcknowledgeAlert failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, Fail(err.Error()))
		}
		return
	}

	writeJSON(w, http.StatusOK, Ok(map[string]any{"acknowledged": true}))
}

// ListAlerts 查询报警历史
// 支持 severity / type 过滤，limit 指定返回上限
func (h *AlertHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req := service.ListAlertsRequest{
		Severity:  r.URL.Query().Get("severity"),
		AlertType: r.URL.Query().Get("type"),
		Limit:     parseInt(r.URL.Query().Get("limit"), 50),
	}

	alerts, err := h.alertService.ListAlerts(ctx, req)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
			return
		}
		h.logger.Error("ListAlerts failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, Ok(alerts))
}
