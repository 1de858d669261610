package task

import (
	"context"
	"time"

	"github.com/example/task-manager/domain/policy"
	domain "github.com/example/task-manager/domain/task"
	"github.com/example/task-manager/domain/validation"
	"github.com/example/task-manager/events"
	"github.com/example/task-manager/modules/user"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
)

// Service implements task management.
type Service struct {
	repo   *Repository
	users  user.UserPort // optional
	bus    mono.EventBus // optional
	logger types.Logger
}

// NewService creates a task service. users and bus may be nil; without users
// the executor is only checked inside the store transaction.
func NewService(repo *Repository, users user.UserPort, bus mono.EventBus, logger types.Logger) *Service {
	return &Service{repo: repo, users: users, bus: bus, logger: logger}
}

// Create validates in and stores a task authored by actor. Any author in the
// submitted form is ignored.
func (s *Service) Create(ctx context.Context, actor policy.Actor, in *domain.Input) (*domain.Task, error) {
	if !actor.Authenticated() {
		return nil, ErrForbidden
	}
	if err := s.validate(ctx, in); err != nil {
		return nil, err
	}

	t := &domain.Task{
		Name:        in.Name,
		Description: in.Description,
		AuthorID:    actor.ID,
		ExecutorID:  in.Executor(),
		StatusID:    in.StatusID,
	}
	if err := s.repo.Create(ctx, t, in.LabelIDs); err != nil {
		return nil, err
	}

	s.logger.Info("Task created", "task_id", t.ID, "name", t.Name, "author_id", t.AuthorID)
	if s.bus != nil {
		event := events.TaskCreatedEvent{
			TaskID:     t.ID,
			Name:       t.Name,
			AuthorID:   t.AuthorID,
			StatusID:   t.StatusID,
			ExecutorID: t.ExecutorID,
			LabelIDs:   t.LabelIDs(),
			CreatedAt:  t.CreatedAt,
		}
		if err := events.TaskCreatedV1.Publish(s.bus, event, nil); err != nil {
			s.logger.Warn("Failed to publish TaskCreated event", "task_id", t.ID, "error", err)
		}
	}
	return t, nil
}

// Update validates in and replaces the editable fields of task id.
// The author never changes.
func (s *Service) Update(ctx context.Context, actor policy.Actor, id uint, in *domain.Input) (*domain.Task, error) {
	if !policy.CanUpdateTask(actor) {
		return nil, ErrForbidden
	}
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	if err := s.validate(ctx, in); err != nil {
		return nil, err
	}

	t, err := s.repo.Update(ctx, id, in.LabelIDs, func(t *domain.Task) {
		t.Name = in.Name
		t.Description = in.Description
		t.StatusID = in.StatusID
		t.ExecutorID = in.Executor()
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Task updated", "task_id", t.ID, "name", t.Name, "actor_id", actor.ID)
	if s.bus != nil {
		event := events.TaskUpdatedEvent{
			TaskID:    t.ID,
			Name:      t.Name,
			ActorID:   actor.ID,
			UpdatedAt: time.Now(),
		}
		if err := events.TaskUpdatedV1.Publish(s.bus, event, nil); err != nil {
			s.logger.Warn("Failed to publish TaskUpdated event", "task_id", t.ID, "error", err)
		}
	}
	return t, nil
}

// Delete removes task id when actor is its author. It returns ErrNotAuthor
// otherwise and ErrNotFound when the task does not exist.
func (s *Service) Delete(ctx context.Context, actor policy.Actor, id uint) error {
	t, err := s.repo.Delete(ctx, id, func(t *domain.Task) error {
		if !policy.CanDeleteTask(actor, t.AuthorID) {
			return ErrNotAuthor
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Task deleted", "task_id", t.ID, "name", t.Name, "actor_id", actor.ID)
	if s.bus != nil {
		event := events.TaskDeletedEvent{
			TaskID:    t.ID,
			Name:      t.Name,
			ActorID:   actor.ID,
			DeletedAt: time.Now(),
		}
		if err := events.TaskDeletedV1.Publish(s.bus, event, nil); err != nil {
			s.logger.Warn("Failed to publish TaskDeleted event", "task_id", t.ID, "error", err)
		}
	}
	return nil
}

// Get returns task id with its relations.
func (s *Service) Get(ctx context.Context, id uint) (*domain.Task, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns the tasks matching f.
func (s *Service) List(ctx context.Context, f domain.Filter) ([]domain.Task, error) {
	return s.repo.List(ctx, f)
}

// validate checks the schema and asks the user module whether the executor exists.
func (s *Service) validate(ctx context.Context, in *domain.Input) error {
	fe := validation.Errors{}
	if err := in.Validate(); err != nil {
		got, ok := validation.AsErrors(err)
		if !ok {
			return err
		}
		fe = got
	}

	if in.ExecutorID != 0 && s.users != nil {
		_, found, err := s.users.GetUser(ctx, in.ExecutorID)
		if err != nil {
			return err
		}
		if !found {
			fe.Add("executor", validation.InvalidChoice)
		}
	}
	return fe.OrNil()
}
