package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Nayana519/PulseGuard/internal/model"
	"github.com/Nayana519/PulseGuard/internal/repository/memory"
	"github.com/Nayana519/PulseGuard/pkg/logger"
	"github.com/Nayana519/PulseGuard/pkg/messaging"
	"github.com/Nayana519/PulseGuard/pkg/metrics"
)

type mockBroker struct {
	mock.Mock
}

func (m *mockBroker) Publish(ctx context.Context, channel string, message interface{}) error {
	return m.Called(ctx, channel, message).Error(0)
}

func (m *mockBroker) Close() error { return nil }

type mockEmail struct {
	mock.Mock
}

func (m *mockEmail) SendCustom(ctx context.Context, to, subject, content string) error {
	return m.Called(ctx, to, subject, content).Error(0)
}

func TestSend_PublishesAllAndEmailsCritical(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	patient := &model.User{ID: uuid.New(), Name: "Ada", Email: "ada@example.com", Role: model.RolePatient}
	require.NoError(t, store.Users().Create(ctx, patient))

	broker := new(mockBroker)
	broker.On("Publish", mock.Anything, messaging.ChannelAlerts, mock.AnythingOfType("messaging.Message")).Return(nil)
	mailer := new(mockEmail)
	mailer.On("SendCustom", mock.Anything, "ada@example.com", "CRITICAL: Cannot add warfarin", mock.Anything).Return(nil)

	svc := NewService(store.Users(), mailer, broker, logger.Nop(), metrics.New("test"))

	now := time.Now().UTC()
	critical := model.NewAlert(patient.ID, nil, model.AlertTypeDrugInteraction, model.AlertSeverityCritical, "CRITICAL: Cannot add warfarin", "blocked", now)
	warning := model.NewAlert(patient.ID, nil, model.AlertTypeMissedDose, model.AlertSeverityWarning, "Missed Dose: warfarin", "missed", now)
	svc.Send(ctx, critical, warning)

	broker.AssertNumberOfCalls(t, "Publish", 2)
	mailer.AssertNumberOfCalls(t, "SendCustom", 1)
}

func TestSend_FailuresAreSwallowed(t *testing.T) {
	ctx := context.Background()
	broker := new(mockBroker)
	broker.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("redis down"))

	svc := NewService(memory.NewStore().Users(), new(mockEmail), broker, logger.Nop(), nil)
	alert := model.NewAlert(uuid.New(), nil, model.AlertTypeDrugInteraction, model.AlertSeverityCritical, "t", "m", time.Now())

	assert.NotPanics(t, func() { svc.Send(ctx, alert) })
	broker.AssertExpectations(t)
}

func TestSend_NilChannels(t *testing.T) {
	svc := NewService(nil, nil, nil, nil, nil)
	assert.NotPanics(t, func() {
		svc.Send(context.Background(), model.NewAlert(uuid.New(), nil, model.AlertTypeLowStock, model.AlertSeverityCritical, "t", "m", time.Now()))
	})
}
