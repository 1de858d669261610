package label

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/example/task-manager/domain/label"
	"github.com/example/task-manager/domain/task"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when no label has the requested id.
	ErrNotFound = errors.New("label not found")
	// ErrInUse is returned when tasks still reference the label.
	ErrInUse = errors.New("label is referenced by tasks")
)

// Repository persists labels with GORM.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new Repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts l.
func (r *Repository) Create(ctx context.Context, l *domain.Label) error {
	if err := r.db.WithContext(ctx).Create(l).Error; err != nil {
		return fmt.Errorf("failed to create label: %w", err)
	}
	return nil
}

// GetByID returns the label with id or ErrNotFound.
func (r *Repository) GetByID(ctx context.Context, id uint) (*domain.Label, error) {
	var l domain.Label
	if err := r.db.WithContext(ctx).First(&l, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get label: %w", err)
	}
	return &l, nil
}

// List returns all labels ordered by id.
func (r *Repository) List(ctx context.Context) ([]domain.Label, error) {
	var labels []domain.Label
	if err := r.db.WithContext(ctx).Order("id").Find(&labels).Error; err != nil {
		return nil, fmt.Errorf("failed to list labels: %w", err)
	}
	return labels, nil
}

// Rename sets the name of label id.
func (r *Repository) Rename(ctx context.Context, id uint, name string) error {
	result := r.db.WithContext(ctx).Model(&domain.Label{}).Where("id = ?", id).Update("name", name)
	if result.Error != nil {
		return fmt.Errorf("failed to update label: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes label id unless a task references it. The lookup, the
// reference count and the delete share one transaction. On ErrInUse the
// returned count is the number of referencing tasks.
func (r *Repository) Delete(ctx context.Context, id uint) (int64, error) {
	var refs int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var l domain.Label
		if err := tx.Select("id").First(&l, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to get label: %w", err)
		}

		if err := tx.Table(task.LabelsJoinTable).Where("label_id = ?", id).Count(&refs).Error; err != nil {
			return fmt.Errorf("failed to count referencing tasks: %w", err)
		}
		if refs > 0 {
			return ErrInUse
		}

		if err := tx.Delete(&domain.Label{}, id).Error; err != nil {
			return fmt.Errorf("failed to delete label: %w", err)
		}
		return nil
	})
	return refs, err
}

// Count returns the number of labels.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Label{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count labels: %w", err)
	}
	return count, nil
}
