// Package label defines the label entity.
package label

import (
	"time"

	"github.com/example/task-manager/domain/validation"
)

// Label is a free-form tag attached to any number of tasks.
type Label struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the table name for the Label entity.
func (Label) TableName() string {
	return "labels"
}

// Input is the create and update form.
type Input struct {
	Name string `form:"name" json:"name" validate:"required,max=100"`
}

// Validate checks the form against its schema.
func (in *Input) Validate() error {
	return validation.Struct(in)
}
