package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"radwatch/internal/models"
	"radwatch/internal/repository"
	"radwatch/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeAlertService 受控桩实现
type fakeAlertService struct {
	createOut *models.Alert
	createErr error
	ackErr    error
	listOut   []*models.Alert
	listErr   error
	listReq   service.ListAlertsRequest
}

func (f *fakeAlertService) CreateManualAlert(ctx context.Context, req service.ManualAlertRequest) (*models.Alert, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.createOut, nil
}

func (f *fakeAlertService) Acknowledge(ctx context.Context, alertID, acknowledgerID string) error {
	return f.ackErr
}

func (f *fakeAlertService) ListAlerts(ctx context.Context, req service.ListAlertsRequest) ([]*models.Alert, error) {
	f.listReq = req
	return f.listOut, f.listErr
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body any) *httptest.ResponseRecorder {
	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func TestCreateManualAlert_OK(t *testing.T) {
	svc := &fakeAlertService{createOut: &models.Alert{
		AlertID:   "alert-1",
		AlertType: models.AlertTypeManual,
		Severity:  models.SeverityCritical,
	}}
	handler := NewAlertHandler(svc, zap.NewNop())

	w := postJSON(t, handler.CreateManualAlert, "/api/v1/alerts", map[string]any{
		"severity":     models.SeverityCritical,
		"block":        "B1",
		"plant":        "P1",
		"area":         "A1",
		"message":      "evacuate now",
		"submitter_id": "admin-1",
	})

	assert.Equal(t, http.StatusOK, w.Code)

	var result Result[models.Alert]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, ResultSuccess, result.Code)
	assert.Equal(t, "alert-1", result.Result.AlertID)
}

func TestCreateManualAlert_ValidationError(t *testing.T) {
	svc := &fakeAlertService{
		createErr: fmt.Errorf("%w: invalid severity", service.ErrValidation),
	}
	handler := NewAlertHandler(svc, zap.NewNop())

	w := postJSON(t, handler.CreateManualAlert, "/api/v1/alerts", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAcknowledgeAlert_StatusMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"success", nil, http.StatusOK},
		{"validation", fmt.Errorf("%w: alert_id is required", service.ErrValidation), http.StatusBadRequest},
		{"not found", fmt.Errorf("alert x: %w", repository.ErrNotFound), http.StatusNotFound},
		{"already acknowledged", fmt.Errorf("alert x: %w", repository.ErrAlreadyAcknowledged), http.StatusConflict},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := NewAlertHandler(&fakeAlertService{ackErr: tc.err}, zap.NewNop())

			w := postJSON(t, handler.AcknowledgeAlert, "/api/v1/alerts/acknowledge", map[string]string{
				"alert_id":        "alert-1",
				"acknowledger_id": "admin-1",
			})
			assert.Equal(t, tc.wantStatus, w.Code)
		})
	}
}

func TestListAlerts_QueryParams(t *testing.T) {
	svc := &fakeAlertService{listOut: []*models.Alert{{AlertID: "alert-1"}}}
	handler := NewAlertHandler(svc, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/alerts?severity=HIGH&type=MANUAL&limit=10", nil)
	w := httptest.NewRecorder()
	handler.ListAlerts(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.SeverityHigh, svc.listReq.Severity)
	assert.Equal(t, models.AlertTypeManual, svc.listReq.AlertType)
	assert.Equal(t, 10, svc.listReq.Limit)
}

func TestListAlerts_DefaultLimit(t *testing.T) {
	svc := &fakeAlertService{}
	handler := NewAlertHandler(svc, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/alerts", nil)
	w := httptest.NewRecorder()
	handler.ListAlerts(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 50, svc.listReq.Limit)
}
