package httpapi

import (
	"errors"
	"net/http"
	"time"

	"radwatch/internal/models"
	"radwatch/internal/service"

	"go.uber.org/zap"
)

// ReadingHandler 读数接入 Handler
type ReadingHandler struct {
	readingService service.ReadingService
	logger         *zap.Logger
}

// NewReadingHandler 创建读数接入 Handler
func NewReadingHandler(readingService service.ReadingService, logger *zap.Logger) *ReadingHandler {
	return &ReadingHandler{
		readingService: readingService,
		logger:         logger,
	}
}

type readingPayload struct {
	SubmitterID string  `json:"submitter_id"`
	Block       string  `json:"block"`
	Plant       string  `json:"plant"`
	Area        string  `json:"area"`
	AreaSpec    string  `json:"area_spec"`
	NearValue   float64 `json:"near_value"`
	FarValue    float64 `json:"far_value"`
	MeasuredAt  string  `json:"measured_at"`
}

// SubmitReading 提交一条读数并同步评估
// 响应始终包含原始写入是否成功和是否检测到违规
func (h *ReadingHandler) SubmitReading(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payload readingPayload
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	measuredAt := time.Time{}
	if payload.MeasuredAt != "" {
		t, err := time.Parse("2006-01-02", payload.MeasuredAt)
		if err != nil {
			t, err = time.Parse(time.RFC3339, payload.MeasuredAt)
		}
		if err != nil {
			writeJSON(w, http.StatusBadRequest, Fail("measured_at must be YYYY-MM-DD or RFC3339"))
			return
		}
		measuredAt = t
	}

	req := service.IngestReadingRequest{
		SubmitterID: payload.SubmitterID,
		Block:       payload.Block,
		Plant:       payload.Plant,
		Area:        payload.Area,
		AreaSpec:    payload.AreaSpec,
		NearValue:   payload.NearValue,
		FarValue:    payload.FarValue,
		MeasuredAt:  measuredAt,
		Origin:      models.OriginManual,
	}

	resp, err := h.readingService.IngestReading(ctx, req)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
			return
		}
		if resp != nil && resp.Accepted {
			// 读数已写入，只有报警记录失败：提交本身不算失败
			h.logger.Error("Reading accepted but alert recording failed", zap.Error(err))
			writeJSON(w, http.StatusOK, Ok(resp))
			return
		}
		h.logger.Error("SubmitReading failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, Ok(resp))
}
