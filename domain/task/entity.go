// Package task defines the task entity, its input schema and list filter.
package task

import (
	"time"

	"github.com/example/task-manager/domain/label"
	"github.com/example/task-manager/domain/status"
	"github.com/example/task-manager/domain/user"
	"github.com/example/task-manager/domain/validation"
)

// LabelsJoinTable is the many-to-many table between tasks and labels.
const LabelsJoinTable = "task_labels"

// Task is a unit of work authored by one user and optionally assigned to another.
type Task struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"size:50;not null" json:"name"`
	Description string         `gorm:"type:text;not null" json:"description"`
	AuthorID    uint           `gorm:"not null;index" json:"author_id"`
	Author      *user.User     `gorm:"foreignKey:AuthorID;constraint:OnDelete:RESTRICT" json:"author,omitempty"`
	ExecutorID  *uint          `gorm:"index" json:"executor_id"`
	Executor    *user.User     `gorm:"foreignKey:ExecutorID;constraint:OnDelete:RESTRICT" json:"executor,omitempty"`
	StatusID    uint           `gorm:"not null;index" json:"status_id"`
	Status      *status.Status `gorm:"foreignKey:StatusID;constraint:OnDelete:RESTRICT" json:"status,omitempty"`
	Labels      []label.Label  `gorm:"many2many:task_labels" json:"labels"`
	CreatedAt   time.Time      `json:"created_at"`
}

// TableName returns the table name for the Task entity.
func (Task) TableName() string {
	return "tasks"
}

// LabelIDs returns the ids of the attached labels.
func (t *Task) LabelIDs() []uint {
	ids := make([]uint, 0, len(t.Labels))
	for _, l := range t.Labels {
		ids = append(ids, l.ID)
	}
	return ids
}

// Input is the create and update form. The author is never part of it:
// it is always the requesting user.
type Input struct {
	Name        string `form:"name" json:"name" validate:"required,max=50"`
	Description string `form:"description" json:"description" validate:"required"`
	StatusID    uint   `form:"status" json:"status" validate:"required"`
	ExecutorID  uint   `form:"executor" json:"executor"`
	LabelIDs    []uint `form:"labels" json:"labels"`
}

// Validate checks the form against its schema.
func (in *Input) Validate() error {
	return validation.Struct(in)
}

// Executor returns the executor id, or nil when none was chosen.
func (in *Input) Executor() *uint {
	if in.ExecutorID == 0 {
		return nil
	}
	id := in.ExecutorID
	return &id
}

// Filter selects tasks for the list view. Zero values mean "no constraint";
// all constraints are combined with AND.
type Filter struct {
	StatusID   uint
	ExecutorID uint
	// LabelIDs matches tasks carrying at least one of the labels.
	LabelIDs []uint
	// AuthorID restricts the result to tasks authored by that user ("only mine").
	AuthorID uint
}

// IsEmpty reports whether the filter has no constraints.
func (f Filter) IsEmpty() bool {
	return f.StatusID == 0 && f.ExecutorID == 0 && len(f.LabelIDs) == 0 && f.AuthorID == 0
}
