// Package status defines the task status entity.
package status

import (
	"time"

	"github.com/example/task-manager/domain/validation"
)

// Status is a workflow state a task can be in, e.g. "New" or "In progress".
type Status struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the table name for the Status entity.
func (Status) TableName() string {
	return "statuses"
}

// Input is the create and update form.
type Input struct {
	Name string `form:"name" json:"name" validate:"required,max=100"`
}

// Validate checks the form against its schema.
func (in *Input) Validate() error {
	return validation.Struct(in)
}
