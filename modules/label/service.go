package label

import (
	"context"
	"errors"
	"time"

	domain "github.com/example/task-manager/domain/label"
	"github.com/example/task-manager/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
)

// Service implements label management.
type Service struct {
	repo   *Repository
	bus    mono.EventBus // optional
	logger types.Logger
}

// NewService creates a label service. bus may be nil.
func NewService(repo *Repository, bus mono.EventBus, logger types.Logger) *Service {
	return &Service{repo: repo, bus: bus, logger: logger}
}

// Create validates in and stores a new label.
func (s *Service) Create(ctx context.Context, in *domain.Input) (*domain.Label, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	lbl := &domain.Label{Name: in.Name}
	if err := s.repo.Create(ctx, lbl); err != nil {
		return nil, err
	}
	s.logger.Info("Label created", "label_id", lbl.ID, "name", lbl.Name)
	return lbl, nil
}

// Get returns label id.
func (s *Service) Get(ctx context.Context, id uint) (*domain.Label, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns all labels.
func (s *Service) List(ctx context.Context) ([]domain.Label, error) {
	return s.repo.List(ctx)
}

// Update validates in and renames label id.
func (s *Service) Update(ctx context.Context, id uint, in *domain.Input) (*domain.Label, error) {
	lbl, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.Rename(ctx, id, in.Name); err != nil {
		return nil, err
	}
	lbl.Name = in.Name
	s.logger.Info("Label updated", "label_id", id, "name", lbl.Name)
	return lbl, nil
}

// Delete removes label id. It returns ErrInUse while tasks reference it.
func (s *Service) Delete(ctx context.Context, id uint) error {
	refs, err := s.repo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, ErrInUse) {
			s.logger.Info("Label delete blocked", "label_id", id, "tasks", refs)
			s.publishBlocked(id, refs)
		}
		return err
	}
	s.logger.Info("Label deleted", "label_id", id)
	return nil
}

func (s *Service) publishBlocked(id uint, refs int64) {
	if s.bus == nil {
		return
	}
	event := events.DeleteBlockedEvent{
		Entity:     "label",
		EntityID:   id,
		References: refs,
		BlockedAt:  time.Now(),
	}
	if err := events.LabelDeleteBlockedV1.Publish(s.bus, event, nil); err != nil {
		s.logger.Warn("Failed to publish DeleteBlocked event", "label_id", id, "error", err)
	}
}
