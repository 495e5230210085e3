package alert

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Nayana519/PulseGuard/internal/model"
	"github.com/Nayana519/PulseGuard/internal/repository"
	apperrors "github.com/Nayana519/PulseGuard/pkg/errors"
)

const listLimit = 50

type AlertServicer interface {
	List(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]*model.Alert, error)
	MarkRead(ctx context.Context, userID, alertID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
}

type Service struct {
	repo repository.AlertRepository
}

var _ AlertServicer = (*Service)(nil)

func NewService(repo repository.AlertRepository) *Service {
	return &Service{repo: repo}
}

// List returns the user's alerts, newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]*model.Alert, error) {
	alerts, err := s.repo.List(ctx, userID, model.AlertFilter{UnreadOnly: unreadOnly, Limit: listLimit})
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to list alerts: %w", err))
	}
	if alerts == nil {
		alerts = []*model.Alert{}
	}
	return alerts, nil
}

func (s *Service) MarkRead(ctx context.Context, userID, alertID uuid.UUID) error {
	alert, err := s.repo.Get(ctx, alertID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("alert", err)
		}
		return apperrors.Internal(fmt.Errorf("failed to get alert: %w", err))
	}
	if alert.UserID != userID {
		return apperrors.NewForbidden("alert belongs to another user")
	}
	if err := s.repo.MarkRead(ctx, alertID); err != nil {
		return apperrors.Internal(fmt.Errorf("failed to mark alert read: %w", err))
	}
	return nil
}

func (s *Service) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	n, err := s.repo.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, apperrors.Internal(fmt.Errorf("failed to mark alerts read: %w", err))
	}
	return n, nil
}
