package service

import (
	"context"
	"sync"

	"radwatch/internal/models"
	"radwatch/internal/notifier"
	"radwatch/internal/repository"

	"github.com/google/uuid"
)

// 各服务测试共用的内存假件

type fakeReadingStore struct {
	created  []*models.Reading
	failWith error
}

func (f *fakeReadingStore) CreateReading(ctx context.Context, reading *models.Reading) error {
	if f.failWith != nil {
		return f.failWith
	}
	reading.Normalize()
	if reading.ReadingID == "" {
		reading.ReadingID = uuid.New().String()
	}
	f.created = append(f.created, reading)
	return nil
}

type fakeAlertStore struct {
	created  []*models.Alert
	failWith error

	ackErr    error
	ackedID   string
	ackedBy   string
	listFlt   repository.AlertFilters
	listLimit int
	listOut   []*models.Alert
}

func (f *fakeAlertStore) CreateAlert(ctx context.Context, alert *models.Alert) error {
	if f.failWith != nil {
		return f.failWith
	}
	if alert.AlertID == "" {
		alert.AlertID = uuid.New().String()
	}
	f.created = append(f.created, alert)
	return nil
}

func (f *fakeAlertStore) GetAlert(ctx context.Context, alertID string) (*models.Alert, error) {
	for _, a := range f.created {
		if a.AlertID == alertID {
			return a, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeAlertStore) Acknowledge(ctx context.Context, alertID, acknowledgerID string) error {
	if f.ackErr != nil {
		return f.ackErr
	}
	f.ackedID = alertID
	f.ackedBy = acknowledgerID
	return nil
}

func (f *fakeAlertStore) ListAlerts(ctx context.Context, filters repository.AlertFilters, limit int) ([]*models.Alert, error) {
	f.listFlt = filters
	f.listLimit = limit
	return f.listOut, nil
}

type fakeResolver struct {
	cfg *models.ThresholdConfig
	err error
}

func (f *fakeResolver) Resolve(ctx context.Context, block, plant, area, areaSpec string) (*models.ThresholdConfig, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.cfg, nil
}

type fakeRecipientResolver struct {
	mu          sync.Mutex
	severity    string
	overrideAll bool
	called      bool
	recipients  []models.Recipient
	err         error
}

func (f *fakeRecipientResolver) ResolveRecipients(ctx context.Context, severity string, overrideAll bool) ([]models.Recipient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.called = true
	f.severity = severity
	f.overrideAll = overrideAll
	return f.recipients, f.err
}

type fakeDispatcher struct {
	mu         sync.Mutex
	called     bool
	recipients []models.Recipient
	severity   string
	message    string
	location   string
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, recipients []models.Recipient, severity, message, location string) notifier.DispatchReport {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.called = true
	f.recipients = recipients
	f.severity = severity
	f.message = message
	f.location = location
	return notifier.DispatchReport{Sent: len(recipients)}
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	room   string
	events []models.AlertEvent
}

func (f *fakeBroadcaster) Broadcast(room string, event models.AlertEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.room = room
	f.events = append(f.events, event)
}
