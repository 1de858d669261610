package user

import "errors"

var (
	// ErrNotFound is returned when no user has the requested id.
	ErrNotFound = errors.New("user not found")
	// ErrInUse is returned when tasks still reference the user.
	ErrInUse = errors.New("user is referenced by tasks")
	// ErrUsernameTaken is returned when another user already has the username.
	ErrUsernameTaken = errors.New("a user with that username already exists")
	// ErrInvalidCredentials is returned when sign-in fails.
	ErrInvalidCredentials = errors.New("invalid username or password")
)
