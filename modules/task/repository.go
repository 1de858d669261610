package task

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/task-manager/domain/label"
	"github.com/example/task-manager/domain/status"
	domain "github.com/example/task-manager/domain/task"
	"github.com/example/task-manager/domain/user"
	"github.com/example/task-manager/domain/validation"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists tasks and their label associations with GORM.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new Repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// preloaded returns a query that loads every relation of a task.
func preloaded(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Author").
		Preload("Executor").
		Preload("Status").
		Preload("Labels", func(db *gorm.DB) *gorm.DB { return db.Order("labels.id") })
}

// Create inserts t with the labels in labelIDs. The status and labels must
// exist; otherwise a validation error is returned and nothing is written.
func (r *Repository) Create(ctx context.Context, t *domain.Task, labelIDs []uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		labels, err := checkReferences(tx, t.StatusID, t.ExecutorID, labelIDs)
		if err != nil {
			return err
		}

		if err := tx.Omit(clause.Associations).Create(t).Error; err != nil {
			return fmt.Errorf("failed to create task: %w", err)
		}
		return replaceLabels(tx, t, labels)
	})
}

// GetByID returns task id with its relations loaded, or ErrNotFound.
func (r *Repository) GetByID(ctx context.Context, id uint) (*domain.Task, error) {
	var t domain.Task
	if err := preloaded(r.db.WithContext(ctx)).First(&t, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return &t, nil
}

// Update applies apply to task id and stores the result with labelIDs as the
// new label set. Everything happens in one transaction.
func (r *Repository) Update(ctx context.Context, id uint, labelIDs []uint, apply func(t *domain.Task)) (*domain.Task, error) {
	var t domain.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&t, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to get task: %w", err)
		}

		apply(&t)

		labels, err := checkReferences(tx, t.StatusID, t.ExecutorID, labelIDs)
		if err != nil {
			return err
		}

		if err := tx.Model(&domain.Task{}).Where("id = ?", id).Updates(map[string]any{
			"name":        t.Name,
			"description": t.Description,
			"status_id":   t.StatusID,
			"executor_id": t.ExecutorID,
		}).Error; err != nil {
			return fmt.Errorf("failed to update task: %w", err)
		}

		return replaceLabels(tx, &t, labels)
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Delete removes task id and its label links after allow accepts the stored
// task. allow runs inside the transaction; its error aborts the delete.
func (r *Repository) Delete(ctx context.Context, id uint, allow func(t *domain.Task) error) (*domain.Task, error) {
	var t domain.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&t, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to get task: %w", err)
		}

		if err := allow(&t); err != nil {
			return err
		}

		if err := tx.Model(&t).Association("Labels").Clear(); err != nil {
			return fmt.Errorf("failed to detach labels: %w", err)
		}
		if err := tx.Delete(&domain.Task{}, id).Error; err != nil {
			return fmt.Errorf("failed to delete task: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// List returns the tasks matching f ordered by id.
func (r *Repository) List(ctx context.Context, f domain.Filter) ([]domain.Task, error) {
	q := preloaded(r.db.WithContext(ctx)).Model(&domain.Task{})

	if f.StatusID != 0 {
		q = q.Where("tasks.status_id = ?", f.StatusID)
	}
	if f.ExecutorID != 0 {
		q = q.Where("tasks.executor_id = ?", f.ExecutorID)
	}
	if len(f.LabelIDs) > 0 {
		q = q.Where(
			"EXISTS (SELECT 1 FROM "+domain.LabelsJoinTable+" tl WHERE tl.task_id = tasks.id AND tl.label_id IN ?)",
			f.LabelIDs,
		)
	}
	if f.AuthorID != 0 {
		q = q.Where("tasks.author_id = ?", f.AuthorID)
	}

	var tasks []domain.Task
	if err := q.Order("tasks.id").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// Count returns the number of tasks.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Task{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", err)
	}
	return count, nil
}

// checkReferences verifies that the status, the executor and every label
// exist and returns the labels in id order.
func checkReferences(tx *gorm.DB, statusID uint, executorID *uint, labelIDs []uint) ([]label.Label, error) {
	fe := validation.Errors{}

	var statusCount int64
	if err := tx.Model(&status.Status{}).Where("id = ?", statusID).Count(&statusCount).Error; err != nil {
		return nil, fmt.Errorf("failed to check status: %w", err)
	}
	if statusCount == 0 {
		fe.Add("status", validation.InvalidChoice)
	}

	if executorID != nil {
		var executorCount int64
		if err := tx.Model(&user.User{}).Where("id = ?", *executorID).Count(&executorCount).Error; err != nil {
			return nil, fmt.Errorf("failed to check executor: %w", err)
		}
		if executorCount == 0 {
			fe.Add("executor", validation.InvalidChoice)
		}
	}

	ids := uniqueIDs(labelIDs)
	var labels []label.Label
	if len(ids) > 0 {
		if err := tx.Where("id IN ?", ids).Order("id").Find(&labels).Error; err != nil {
			return nil, fmt.Errorf("failed to load labels: %w", err)
		}
		if len(labels) != len(ids) {
			fe.Add("labels", "Select a valid choice. One of the selected labels does not exist.")
		}
	}

	if err := fe.OrNil(); err != nil {
		return nil, err
	}
	return labels, nil
}

// replaceLabels makes labels the exact label set of t.
func replaceLabels(tx *gorm.DB, t *domain.Task, labels []label.Label) error {
	assoc := tx.Model(t).Association("Labels")
	if len(labels) == 0 {
		if err := assoc.Clear(); err != nil {
			return fmt.Errorf("failed to clear labels: %w", err)
		}
		t.Labels = []label.Label{}
		return nil
	}
	if err := assoc.Replace(labels); err != nil {
		return fmt.Errorf("failed to replace labels: %w", err)
	}
	t.Labels = labels
	return nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
