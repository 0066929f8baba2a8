package service

import (
	"context"
	"errors"
	"testing"

	"radwatch/internal/models"
	"radwatch/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type alertServiceFixture struct {
	alerts     *fakeAlertStore
	recipients *fakeRecipientResolver
	dispatcher *fakeDispatcher
	hub        *fakeBroadcaster
	svc        AlertService
}

func newAlertFixture() *alertServiceFixture {
	f := &alertServiceFixture{
		alerts:     &fakeAlertStore{},
		recipients: &fakeRecipientResolver{},
		dispatcher: &fakeDispatcher{},
		hub:        &fakeBroadcaster{},
	}
	f.svc = NewAlertService(f.alerts, f.recipients, f.dispatcher, f.hub, zap.NewNop())
	return f
}

func manualRequest() ManualAlertRequest {
	return ManualAlertRequest{
		Severity:    models.SeverityCritical,
		Block:       "B1",
		Plant:       "P1",
		Area:        "A1",
		Message:     "evacuate turbine hall immediately",
		SubmitterID: "admin-1",
	}
}

func TestCreateManualAlert_Success(t *testing.T) {
	f := newAlertFixture()

	alert, err := f.svc.CreateManualAlert(context.Background(), manualRequest())
	require.NoError(t, err)

	assert.Equal(t, models.AlertTypeManual, alert.AlertType)
	assert.NotEmpty(t, alert.AlertID)

	// 人工报警不经过评估器，数值字段全部为零
	assert.Equal(t, 0.0, alert.NearValue)
	assert.Equal(t, 0.0, alert.FarValue)
	assert.Equal(t, 0.0, alert.NearLimit)
	assert.Equal(t, 0.0, alert.FarLimit)

	// 分发集合按"覆盖所有人"模式计算
	assert.True(t, f.recipients.called)
	assert.True(t, f.recipients.overrideAll)

	require.Len(t, f.hub.events, 1)
	assert.Equal(t, "manual_alert", f.hub.events[0].EventKind)
}

func TestCreateManualAlert_Validation(t *testing.T) {
	f := newAlertFixture()

	cases := []struct {
		name   string
		mutate func(*ManualAlertRequest)
	}{
		{"invalid severity", func(r *ManualAlertRequest) { r.Severity = "PANIC" }},
		{"missing block", func(r *ManualAlertRequest) { r.Block = "" }},
		{"missing message", func(r *ManualAlertRequest) { r.Message = "" }},
		{"missing submitter", func(r *ManualAlertRequest) { r.SubmitterID = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := manualRequest()
			tc.mutate(&req)
			alert, err := f.svc.CreateManualAlert(context.Background(), req)
			assert.Nil(t, alert)
			assert.True(t, errors.Is(err, ErrValidation))
		})
	}
}

func TestCreateManualAlert_StoreFailure(t *testing.T) {
	f := newAlertFixture()
	f.alerts.failWith = errors.New("db down")

	alert, err := f.svc.CreateManualAlert(context.Background(), manualRequest())
	assert.Nil(t, alert)
	assert.Error(t, err)

	// 落库失败不拦截分发：通知和实时广播照常执行
	assert.True(t, f.dispatcher.called)
	require.Len(t, f.hub.events, 1)
	assert.Equal(t, "manual_alert", f.hub.events[0].EventKind)
}

func TestAcknowledge_PassThrough(t *testing.T) {
	f := newAlertFixture()

	err := f.svc.Acknowledge(context.Background(), "alert-1", "admin-1")
	require.NoError(t, err)
	assert.Equal(t, "alert-1", f.alerts.ackedID)
	assert.Equal(t, "admin-1", f.alerts.ackedBy)
}

func TestAcknowledge_SentinelErrorsPropagate(t *testing.T) {
	f := newAlertFixture()

	f.alerts.ackErr = repository.ErrAlreadyAcknowledged
	err := f.svc.Acknowledge(context.Background(), "alert-1", "admin-2")
	assert.True(t, errors.Is(err, repository.ErrAlreadyAcknowledged))

	f.alerts.ackErr = repository.ErrNotFound
	err = f.svc.Acknowledge(context.Background(), "alert-9", "admin-2")
	assert.True(t, errors.Is(err, repository.ErrNotFound))
}

func TestAcknowledge_Validation(t *testing.T) {
	f := newAlertFixture()

	err := f.svc.Acknowledge(context.Background(), "", "admin-1")
	assert.True(t, errors.Is(err, ErrValidation))

	err = f.svc.Acknowledge(context.Background(), "alert-1", "")
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestListAlerts_FilterMapping(t *testing.T) {
	f := newAlertFixture()
	f.alerts.listOut = []*models.Alert{{AlertID: "alert-1"}}

	alerts, err := f.svc.ListAlerts(context.Background(), ListAlertsRequest{
		Severity:  models.SeverityHigh,
		AlertType: models.AlertTypeManual,
		Limit:     20,
	})
	require.NoError(t, err)
	require.Len(t, alerts, 1)

	require.NotNil(t, f.alerts.listFlt.Severity)
	assert.Equal(t, models.SeverityHigh, *f.alerts.listFlt.Severity)
	require.NotNil(t, f.alerts.listFlt.AlertType)
	assert.Equal(t, models.AlertTypeManual, *f.alerts.listFlt.AlertType)
	assert.Equal(t, 20, f.alerts.listLimit)
}

func TestListAlerts_InvalidFilters(t *testing.T) {
	f := newAlertFixture()

	_, err := f.svc.ListAlerts(context.Background(), ListAlertsRequest{Severity: "PANIC"})
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = f.svc.ListAlerts(context.Background(), ListAlertsRequest{AlertType: "UNKNOWN"})
	assert.True(t, errors.Is(err, ErrValidation))
}
