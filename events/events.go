// Package events declares the domain events published on the mono event bus.
package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"
)

// TaskCreatedEvent is emitted when a task is created.
type TaskCreatedEvent struct {
	TaskID     uint      `json:"task_id"`
	Name       string    `json:"name"`
	AuthorID   uint      `json:"author_id"`
	StatusID   uint      `json:"status_id"`
	ExecutorID *uint     `json:"executor_id,omitempty"`
	LabelIDs   []uint    `json:"label_ids,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// TaskCreatedV1 is the typed event definition for task creation.
// Subject: events.task.v1.task-created
var TaskCreatedV1 = helper.EventDefinition[TaskCreatedEvent](
	"task", "TaskCreated", "v1",
)

// TaskUpdatedEvent is emitted when a task is changed.
type TaskUpdatedEvent struct {
	TaskID    uint      `json:"task_id"`
	Name      string    `json:"name"`
	ActorID   uint      `json:"actor_id"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TaskUpdatedV1 is the typed event definition for task updates.
// Subject: events.task.v1.task-updated
var TaskUpdatedV1 = helper.EventDefinition[TaskUpdatedEvent](
	"task", "TaskUpdated", "v1",
)

// TaskDeletedEvent is emitted when a task is deleted by its author.
type TaskDeletedEvent struct {
	TaskID    uint      `json:"task_id"`
	Name      string    `json:"name"`
	ActorID   uint      `json:"actor_id"`
	DeletedAt time.Time `json:"deleted_at"`
}

// TaskDeletedV1 is the typed event definition for task deletion.
// Subject: events.task.v1.task-deleted
var TaskDeletedV1 = helper.EventDefinition[TaskDeletedEvent](
	"task", "TaskDeleted", "v1",
)

// UserRegisteredEvent is emitted when a new account is created.
type UserRegisteredEvent struct {
	UserID       uint      `json:"user_id"`
	Username     string    `json:"username"`
	RegisteredAt time.Time `json:"registered_at"`
}

// UserRegisteredV1 is the typed event definition for registrations.
// Subject: events.user.v1.user-registered
var UserRegisteredV1 = helper.EventDefinition[UserRegisteredEvent](
	"user", "UserRegistered", "v1",
)

// DeleteBlockedEvent is emitted when a delete is refused because tasks still
// reference the record.
type DeleteBlockedEvent struct {
	Entity     string    `json:"entity"`
	EntityID   uint      `json:"entity_id"`
	References int64     `json:"references"`
	BlockedAt  time.Time `json:"blocked_at"`
}

// StatusDeleteBlockedV1 is emitted by the status module.
// Subject: events.status.v1.delete-blocked
var StatusDeleteBlockedV1 = helper.EventDefinition[DeleteBlockedEvent](
	"status", "DeleteBlocked", "v1",
)

// LabelDeleteBlockedV1 is emitted by the label module.
// Subject: events.label.v1.delete-blocked
var LabelDeleteBlockedV1 = helper.EventDefinition[DeleteBlockedEvent](
	"label", "DeleteBlocked", "v1",
)

// UserDeleteBlockedV1 is emitted by the user module.
// Subject: events.user.v1.delete-blocked
var UserDeleteBlockedV1 = helper.EventDefinition[DeleteBlockedEvent](
	"user", "DeleteBlocked", "v1",
)
