package notification

import (
	"context"
	"fmt"

	"github.com/Nayana519/PulseGuard/internal/email"
	"github.com/Nayana519/PulseGuard/internal/model"
	"github.com/Nayana519/PulseGuard/internal/repository"
	"github.com/Nayana519/PulseGuard/pkg/logger"
	"github.com/Nayana519/PulseGuard/pkg/messaging"
	"github.com/Nayana519/PulseGuard/pkg/metrics"
)

const eventAlertCreated = "alert.created"

// Service fans committed alerts out to the broker and, for critical ones, email.
// Delivery is best effort: failures are logged and never returned.
type Service interface {
	Send(ctx context.Context, alerts ...*model.Alert)
}

type service struct {
	users    repository.UserRepository
	emailSvc email.Service
	broker   messaging.Broker
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

// NewService accepts a nil broker or email service to disable that channel.
func NewService(users repository.UserRepository, emailSvc email.Service, broker messaging.Broker, log *logger.Logger, m *metrics.Metrics) Service {
	if log == nil {
		log = logger.Nop()
	}
	return &service{
		users:    users,
		emailSvc: emailSvc,
		broker:   broker,
		logger:   log,
		metrics:  m,
	}
}

func (s *service) Send(ctx context.Context, alerts ...*model.Alert) {
	for _, alert := range alerts {
		if s.metrics != nil {
			s.metrics.AlertsCreated.WithLabelValues(string(alert.Type), string(alert.Severity)).Inc()
		}
		s.publish(ctx, alert)
		if alert.Severity == model.AlertSeverityCritical {
			s.sendEmail(ctx, alert)
		}
	}
}

func (s *service) publish(ctx context.Context, alert *model.Alert) {
	if s.broker == nil {
		return
	}
	status := "success"
	err := s.broker.Publish(ctx, messaging.ChannelAlerts, messaging.Message{Type: eventAlertCreated, Payload: alert})
	if err != nil {
		status = "error"
		s.logger.Error(err, "Failed to publish alert", "alert_id", alert.ID.String())
	}
	if s.metrics != nil {
		s.metrics.BrokerPublishes.WithLabelValues(status).Inc()
	}
}

func (s *service) sendEmail(ctx context.Context, alert *model.Alert) {
	if s.emailSvc == nil || s.users == nil {
		return
	}
	user, err := s.users.Get(ctx, alert.UserID)
	if err != nil {
		s.logger.Warn("alert recipient not found", "alert_id", alert.ID.String(), "error", err.Error())
		return
	}
	if user.Email == "" {
		return
	}
	body := fmt.Sprintf("Hello %s,\n\n%s\n\n-- PulseGuard", user.Name, alert.Message)
	if err := s.emailSvc.SendCustom(ctx, user.Email, alert.Title, body); err != nil {
		s.logger.Error(err, "Failed to email alert", "alert_id", alert.ID.String())
	}
}
