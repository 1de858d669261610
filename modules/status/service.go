package status

import (
	"context"
	"errors"
	"time"

	domain "github.com/example/task-manager/domain/status"
	"github.com/example/task-manager/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
)

// Service implements status management.
type Service struct {
	repo   *Repository
	bus    mono.EventBus // optional
	logger types.Logger
}

// NewService creates a status service. bus may be nil.
func NewService(repo *Repository, bus mono.EventBus, logger types.Logger) *Service {
	return &Service{repo: repo, bus: bus, logger: logger}
}

// Create validates in and stores a new status.
func (s *Service) Create(ctx context.Context, in *domain.Input) (*domain.Status, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	st := &domain.Status{Name: in.Name}
	if err := s.repo.Create(ctx, st); err != nil {
		return nil, err
	}
	s.logger.Info("Status created", "status_id", st.ID, "name", st.Name)
	return st, nil
}

// Get returns status id.
func (s *Service) Get(ctx context.Context, id uint) (*domain.Status, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns all statuses.
func (s *Service) List(ctx context.Context) ([]domain.Status, error) {
	return s.repo.List(ctx)
}

// Update validates in and renames status id.
func (s *Service) Update(ctx context.Context, id uint, in *domain.Input) (*domain.Status, error) {
	st, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.Rename(ctx, id, in.Name); err != nil {
		return nil, err
	}
	st.Name = in.Name
	s.logger.Info("Status updated", "status_id", id, "name", st.Name)
	return st, nil
}

// Delete removes status id. It returns ErrInUse while tasks reference it.
func (s *Service) Delete(ctx context.Context, id uint) error {
	refs, err := s.repo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, ErrInUse) {
			s.logger.Info("Status delete blocked", "status_id", id, "tasks", refs)
			s.publishBlocked(id, refs)
		}
		return err
	}
	s.logger.Info("Status deleted", "status_id", id)
	return nil
}

func (s *Service) publishBlocked(id uint, refs int64) {
	if s.bus == nil {
		return
	}
	event := events.DeleteBlockedEvent{
		Entity:     "status",
		EntityID:   id,
		References: refs,
		BlockedAt:  time.Now(),
	}
	if err := events.StatusDeleteBlockedV1.Publish(s.bus, event, nil); err != nil {
		s.logger.Warn("Failed to publish DeleteBlocked event", "status_id", id, "error", err)
	}
}
