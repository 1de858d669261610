package task

import "errors"

var (
	// ErrNotFound is returned when no task has the requested id.
	ErrNotFound = errors.New("task not found")
	// ErrNotAuthor is returned when someone other than the author deletes a task.
	ErrNotAuthor = errors.New("only the author can delete a task")
	// ErrForbidden is returned when an anonymous actor tries to change a task.
	ErrForbidden = errors.New("sign in to change tasks")
)
