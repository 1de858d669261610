// Package audit records domain events in the log and in a bounded in-memory trail.
package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/example/task-manager/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/google/uuid"
)

// DefaultCapacity is the number of records kept when none is configured.
const DefaultCapacity = 500

// Record is one audited event.
type Record struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Message    string    `json:"message"`
	ActorID    uint      `json:"actor_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Module consumes task, user, status and label events.
type Module struct {
	capacity int
	records  []Record
	mu       sync.RWMutex
	logger   types.Logger
	now      func() time.Time
}

var _ mono.Module = (*Module)(nil)
var _ mono.EventConsumerModule = (*Module)(nil)

// NewModule creates the audit module. A capacity below one uses DefaultCapacity.
func NewModule(capacity int, logger types.Logger) *Module {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Module{
		capacity: capacity,
		records:  make([]Record, 0, capacity),
		logger:   logger,
		now:      time.Now,
	}
}

func (m *Module) Name() string {
	return "audit"
}

func (m *Module) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskCreatedV1, m.handleTaskCreated, m); err != nil {
		return fmt.Errorf("failed to register TaskCreated consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskUpdatedV1, m.handleTaskUpdated, m); err != nil {
		return fmt.Errorf("failed to register TaskUpdated consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskDeletedV1, m.handleTaskDeleted, m); err != nil {
		return fmt.Errorf("failed to register TaskDeleted consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.UserRegisteredV1, m.handleUserRegistered, m); err != nil {
		return fmt.Errorf("failed to register UserRegistered consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.StatusDeleteBlockedV1, m.handleDeleteBlocked, m); err != nil {
		return fmt.Errorf("failed to register status DeleteBlocked consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.LabelDeleteBlockedV1, m.handleDeleteBlocked, m); err != nil {
		return fmt.Errorf("failed to register label DeleteBlocked consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.UserDeleteBlockedV1, m.handleDeleteBlocked, m); err != nil {
		return fmt.Errorf("failed to register user DeleteBlocked consumer: %w", err)
	}

	m.logger.Info("Registered event consumers",
		"events", "TaskCreated, TaskUpdated, TaskDeleted, UserRegistered, DeleteBlocked")
	return nil
}

func (m *Module) handleTaskCreated(_ context.Context, e events.TaskCreatedEvent, _ *mono.Msg) error {
	m.logger.Info("Created task", "task_id", e.TaskID, "name", e.Name, "author_id", e.AuthorID)
	m.record("task_created", fmt.Sprintf("Created task: %s", e.Name), e.AuthorID)
	return nil
}

func (m *Module) handleTaskUpdated(_ context.Context, e events.TaskUpdatedEvent, _ *mono.Msg) error {
	m.logger.Info("Updated task", "task_id", e.TaskID, "name", e.Name, "actor_id", e.ActorID)
	m.record("task_updated", fmt.Sprintf("Updated task: %s", e.Name), e.ActorID)
	return nil
}

func (m *Module) handleTaskDeleted(_ context.Context, e events.TaskDeletedEvent, _ *mono.Msg) error {
	m.logger.Info("Deleted task", "task_id", e.TaskID, "name", e.Name, "actor_id", e.ActorID)
	m.record("task_deleted", fmt.Sprintf("Deleted task: %s", e.Name), e.ActorID)
	return nil
}

func (m *Module) handleUserRegistered(_ context.Context, e events.UserRegisteredEvent, _ *mono.Msg) error {
	m.logger.Info("Registered user", "user_id", e.UserID, "username", e.Username)
	m.record("user_registered", fmt.Sprintf("Registered user: %s", e.Username), e.UserID)
	return nil
}

func (m *Module) handleDeleteBlocked(_ context.Context, e events.DeleteBlockedEvent, _ *mono.Msg) error {
	m.logger.Warn("Delete blocked", "entity", e.Entity, "entity_id", e.EntityID, "references", e.References)
	m.record("delete_blocked",
		fmt.Sprintf("Refused to delete %s %d: %d task(s) refer to it", e.Entity, e.EntityID, e.References), 0)
	return nil
}

// record appends a record, dropping the oldest once capacity is reached.
func (m *Module) record(kind, message string, actorID uint) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.records) == m.capacity {
		copy(m.records, m.records[1:])
		m.records = m.records[:len(m.records)-1]
	}
	m.records = append(m.records, Record{
		ID:         uuid.NewString(),
		Type:       kind,
		Message:    message,
		ActorID:    actorID,
		OccurredAt: m.now(),
	})
}

// Records returns the trail, oldest first.
func (m *Module) Records() []Record {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]Record, len(m.records))
	copy(result, m.records)
	return result
}

func (m *Module) Start(_ context.Context) error {
	m.logger.Info("Audit module started", "capacity", m.capacity)
	return nil
}

func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("Audit module stopped", "records", len(m.Records()))
	return nil
}
