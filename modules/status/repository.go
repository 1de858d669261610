package status

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/example/task-manager/domain/status"
	"github.com/example/task-manager/domain/task"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when no status has the requested id.
	ErrNotFound = errors.New("status not found")
	// ErrInUse is returned when tasks still reference the status.
	ErrInUse = errors.New("status is referenced by tasks")
)

// Repository persists statuses with GORM.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new Repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts s.
func (r *Repository) Create(ctx context.Context, s *domain.Status) error {
	if err := r.db.WithContext(ctx).Create(s).Error; err != nil {
		return fmt.Errorf("failed to create status: %w", err)
	}
	return nil
}

// GetByID returns the status with id or ErrNotFound.
func (r *Repository) GetByID(ctx context.Context, id uint) (*domain.Status, error) {
	var s domain.Status
	if err := r.db.WithContext(ctx).First(&s, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get status: %w", err)
	}
	return &s, nil
}

// List returns all statuses ordered by id.
func (r *Repository) List(ctx context.Context) ([]domain.Status, error) {
	var statuses []domain.Status
	if err := r.db.WithContext(ctx).Order("id").Find(&statuses).Error; err != nil {
		return nil, fmt.Errorf("failed to list statuses: %w", err)
	}
	return statuses, nil
}

// Rename sets the name of status id.
func (r *Repository) Rename(ctx context.Context, id uint, name string) error {
	result := r.db.WithContext(ctx).Model(&domain.Status{}).Where("id = ?", id).Update("name", name)
	if result.Error != nil {
		return fmt.Errorf("failed to update status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes status id unless a task references it. The lookup, the
// reference count and the delete share one transaction. On ErrInUse the
// returned count is the number of referencing tasks.
func (r *Repository) Delete(ctx context.Context, id uint) (int64, error) {
	var refs int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var s domain.Status
		if err := tx.Select("id").First(&s, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to get status: %w", err)
		}

		if err := tx.Model(&task.Task{}).Where("status_id = ?", id).Count(&refs).Error; err != nil {
			return fmt.Errorf("failed to count referencing tasks: %w", err)
		}
		if refs > 0 {
			return ErrInUse
		}

		if err := tx.Delete(&domain.Status{}, id).Error; err != nil {
			return fmt.Errorf("failed to delete status: %w", err)
		}
		return nil
	})
	return refs, err
}

// Count returns the number of statuses.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Status{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count statuses: %w", err)
	}
	return count, nil
}
