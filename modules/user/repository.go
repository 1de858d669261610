package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/task-manager/domain/task"
	domain "github.com/example/task-manager/domain/user"
	"gorm.io/gorm"
)

// Repository persists users with GORM.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new Repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts u and fills in its id and creation time.
func (r *Repository) Create(ctx context.Context, u *domain.User) error {
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrUsernameTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID returns the user with id or ErrNotFound.
func (r *Repository) GetByID(ctx context.Context, id uint) (*domain.User, error) {
	var u domain.User
	if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// GetByUsername returns the user with username or ErrNotFound.
func (r *Repository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	var u domain.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}
	return &u, nil
}

// List returns all users ordered by id.
func (r *Repository) List(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	if err := r.db.WithContext(ctx).Order("id").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// UsernameTaken reports whether a user other than excludeID has username.
// Pass 0 to check against every user.
func (r *Repository) UsernameTaken(ctx context.Context, username string, excludeID uint) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&domain.User{}).Where("username = ?", username)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check username: %w", err)
	}
	return count > 0, nil
}

// Update saves the editable fields of u.
func (r *Repository) Update(ctx context.Context, u *domain.User) error {
	result := r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", u.ID).Updates(map[string]any{
		"username":      u.Username,
		"first_name":    u.FirstName,
		"last_name":     u.LastName,
		"password_hash": u.PasswordHash,
	})
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return ErrUsernameTaken
		}
		return fmt.Errorf("failed to update user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the user with id unless a task references it as author or
// executor. The lookup, the reference count and the delete share one
// transaction. On ErrInUse the returned count is the number of referencing tasks.
func (r *Repository) Delete(ctx context.Context, id uint) (int64, error) {
	var refs int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u domain.User
		if err := tx.Select("id").First(&u, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to get user: %w", err)
		}

		if err := tx.Model(&task.Task{}).
			Where("author_id = ? OR executor_id = ?", id, id).
			Count(&refs).Error; err != nil {
			return fmt.Errorf("failed to count referencing tasks: %w", err)
		}
		if refs > 0 {
			return ErrInUse
		}

		if err := tx.Delete(&domain.User{}, id).Error; err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		return nil
	})
	return refs, err
}

// Count returns the number of users.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.User{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}
