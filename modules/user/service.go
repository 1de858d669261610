package user

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	domain "github.com/example/task-manager/domain/user"
	"github.com/example/task-manager/domain/validation"
	"github.com/example/task-manager/events"
	"github.com/example/task-manager/modules/cache"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"golang.org/x/sync/singleflight"
)

// maxPasswordBytes is bcrypt's input limit.
const maxPasswordBytes = 72

const usernameTakenMessage = "A user with that username already exists."

// Service implements registration, profile changes, sign-in and lookups.
type Service struct {
	repo    *Repository
	hasher  *PasswordHasher
	cache   cache.Cache   // optional
	bus     mono.EventBus // optional
	logger  types.Logger
	sfGroup singleflight.Group
}

// NewService creates a user service. c and bus may be nil.
func NewService(repo *Repository, hasher *PasswordHasher, c cache.Cache, bus mono.EventBus, logger types.Logger) *Service {
	return &Service{
		repo:   repo,
		hasher: hasher,
		cache:  c,
		bus:    bus,
		logger: logger,
	}
}

func cacheKey(id uint) string {
	return "user:" + strconv.FormatUint(uint64(id), 10)
}

// Register validates in and creates a regular user.
func (s *Service) Register(ctx context.Context, in *domain.RegisterInput) (*domain.User, error) {
	if err := s.checkForm(ctx, in.Username, in.Password1, 0, in.Validate()); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password1)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u := &domain.User{
		Username:     in.Username,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: hash,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			return nil, validation.Errors{"username": usernameTakenMessage}
		}
		return nil, err
	}

	s.logger.Info("User registered", "user_id", u.ID, "username", u.Username)
	if s.bus != nil {
		event := events.UserRegisteredEvent{
			UserID:       u.ID,
			Username:     u.Username,
			RegisteredAt: u.CreatedAt,
		}
		if err := events.UserRegisteredV1.Publish(s.bus, event, nil); err != nil {
			s.logger.Warn("Failed to publish UserRegistered event", "user_id", u.ID, "error", err)
		}
	}
	return u, nil
}

// EnsureSuperuser creates a superuser named username unless a user with that
// name exists. It reports whether a user was created.
func (s *Service) EnsureSuperuser(ctx context.Context, username, password string) (bool, error) {
	if _, err := s.repo.GetByUsername(ctx, username); err == nil {
		return false, nil
	} else if !errors.Is(err, ErrNotFound) {
		return false, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return false, fmt.Errorf("failed to hash password: %w", err)
	}
	u := &domain.User{
		Username:     username,
		FirstName:    username,
		LastName:     username,
		PasswordHash: hash,
		IsSuperuser:  true,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return false, err
	}
	s.logger.Info("Superuser created", "user_id", u.ID, "username", u.Username)
	return true, nil
}

// Update replaces the profile of user id with in.
// Access checks are the caller's job.
func (s *Service) Update(ctx context.Context, id uint, in *domain.UpdateInput) (*domain.User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.checkForm(ctx, in.Username, in.Password1, id, in.Validate()); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password1)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u.Username = in.Username
	u.FirstName = in.FirstName
	u.LastName = in.LastName
	u.PasswordHash = hash
	if err := s.repo.Update(ctx, u); err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			return nil, validation.Errors{"username": usernameTakenMessage}
		}
		return nil, err
	}

	s.invalidate(ctx, id)
	s.logger.Info("User updated", "user_id", u.ID, "username", u.Username)
	return u, nil
}

// Delete removes user id unless tasks reference it. It returns ErrInUse when
// blocked and ErrNotFound when the user does not exist.
func (s *Service) Delete(ctx context.Context, id uint) error {
	refs, err := s.repo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, ErrInUse) {
			s.logger.Info("User delete blocked", "user_id", id, "tasks", refs)
			s.publishBlocked(id, refs)
		}
		return err
	}

	s.invalidate(ctx, id)
	s.logger.Info("User deleted", "user_id", id)
	return nil
}

// Authenticate returns the user matching the credentials or ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	u, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !s.hasher.Verify(password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// GetByID returns the user with id. When a cache is configured lookups are
// served cache-aside and concurrent misses for one id share a single query.
func (s *Service) GetByID(ctx context.Context, id uint) (*domain.User, error) {
	if s.cache == nil {
		return s.repo.GetByID(ctx, id)
	}

	var cached domain.User
	found, err := s.cache.Get(ctx, cacheKey(id), &cached)
	if err != nil {
		s.logger.Warn("User cache read failed", "user_id", id, "error", err)
	}
	if found {
		return &cached, nil
	}

	val, err, _ := s.sfGroup.Do(cacheKey(id), func() (any, error) {
		return s.repo.GetByID(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	u := val.(*domain.User)

	if err := s.cache.Set(ctx, cacheKey(id), u); err != nil {
		s.logger.Warn("User cache write failed", "user_id", id, "error", err)
	}
	// Copy so callers never share the singleflight result.
	out := *u
	return &out, nil
}

// List returns all users.
func (s *Service) List(ctx context.Context) ([]domain.User, error) {
	return s.repo.List(ctx)
}

// checkForm merges schema errors with the uniqueness and byte-length checks
// the schema cannot express.
func (s *Service) checkForm(ctx context.Context, username, password string, excludeID uint, schemaErr error) error {
	fe := validation.Errors{}
	if schemaErr != nil {
		got, ok := validation.AsErrors(schemaErr)
		if !ok {
			return schemaErr
		}
		fe = got
	}

	if len(password) > maxPasswordBytes {
		fe.Add("password1", fmt.Sprintf("Ensure this value has at most %d bytes.", maxPasswordBytes))
	}

	if username != "" {
		taken, err := s.repo.UsernameTaken(ctx, username, excludeID)
		if err != nil {
			return err
		}
		if taken {
			fe.Add("username", usernameTakenMessage)
		}
	}
	return fe.OrNil()
}

func (s *Service) invalidate(ctx context.Context, id uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, cacheKey(id)); err != nil {
		s.logger.Warn("Failed to invalidate user cache", "user_id", id, "error", err)
	}
}

func (s *Service) publishBlocked(id uint, refs int64) {
	if s.bus == nil {
		return
	}
	event := events.DeleteBlockedEvent{
		Entity:     "user",
		EntityID:   id,
		References: refs,
		BlockedAt:  time.Now(),
	}
	if err := events.UserDeleteBlockedV1.Publish(s.bus, event, nil); err != nil {
		s.logger.Warn("Failed to publish DeleteBlocked event", "user_id", id, "error", err)
	}
}
