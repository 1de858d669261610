// Package user defines the user entity and its input schemas.
package user

import (
	"time"

	"github.com/example/task-manager/domain/validation"
)

// MinPasswordLength is the shortest password accepted on registration and update.
const MinPasswordLength = 3

// User represents an account that can sign in, author tasks and execute them.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:150;not null" json:"username"`
	FirstName    string    `gorm:"size:100;not null" json:"first_name"`
	LastName     string    `gorm:"size:100;not null" json:"last_name"`
	PasswordHash string    `gorm:"not null" json:"-"`
	IsSuperuser  bool      `gorm:"not null;default:false" json:"is_superuser"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName returns the table name for the User entity.
func (User) TableName() string {
	return "users"
}

// FullName returns "First Last".
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// RegisterInput is the registration form.
type RegisterInput struct {
	FirstName string `form:"first_name" json:"first_name" validate:"required,max=100"`
	LastName  string `form:"last_name" json:"last_name" validate:"required,max=100"`
	Username  string `form:"username" json:"username" validate:"required,max=150,username"`
	Password1 string `form:"password1" json:"password1" validate:"required,min=3,max=72"`
	Password2 string `form:"password2" json:"password2" validate:"required,eqfield=Password1"`
}

// Validate checks the form against its schema.
func (in *RegisterInput) Validate() error {
	return validation.Struct(in)
}

// UpdateInput is the profile form. It carries the same fields as registration,
// the password is replaced on every update.
type UpdateInput RegisterInput

// Validate checks the form against its schema.
func (in *UpdateInput) Validate() error {
	return validation.Struct((*RegisterInput)(in))
}

// LoginInput is the sign-in form.
type LoginInput struct {
	Username string `form:"username" json:"username" validate:"required"`
	Password string `form:"password" json:"password" validate:"required"`
}

// Validate checks the form against its schema.
func (in *LoginInput) Validate() error {
	return validation.Struct(in)
}

// Claims is the identity carried by an access token.
type Claims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
}
