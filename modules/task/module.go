// Package task manages tasks: creation with a forced author, free editing,
// author-only deletion and the filtered list.
package task

import (
	"context"
	"fmt"

	"github.com/example/task-manager/events"
	"github.com/example/task-manager/modules/database"
	"github.com/example/task-manager/modules/user"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
)

// Module wires the task service into the mono application.
type Module struct {
	dbPlugin *database.PluginModule
	userPort user.UserPort
	eventBus mono.EventBus
	service  *Service
	logger   types.Logger
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.UsePluginModule       = (*Module)(nil)
	_ mono.DependentModule       = (*Module)(nil)
	_ mono.EventEmitterModule    = (*Module)(nil)
	_ mono.EventBusAwareModule   = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates the task module.
func NewModule(logger types.Logger) *Module {
	return &Module{logger: logger}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "task"
}

// Dependencies returns the modules whose services this module calls.
func (m *Module) Dependencies() []string {
	return []string{"user"}
}

// SetDependencyServiceContainer receives the user module's services.
func (m *Module) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	if dependency == "user" {
		m.userPort = user.NewUserAdapter(container)
	}
}

// SetPlugin receives the database plugin.
func (m *Module) SetPlugin(alias string, plugin mono.PluginModule) {
	if alias != "db" {
		return
	}
	p, ok := plugin.(*database.PluginModule)
	if !ok {
		m.logger.Error("Invalid plugin type for db", "alias", alias)
		return
	}
	m.dbPlugin = p
}

// SetEventBus receives the event bus.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module publishes.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.TaskCreatedV1.ToBase(),
		events.TaskUpdatedV1.ToBase(),
		events.TaskDeletedV1.ToBase(),
	}
}

// Start builds the service.
func (m *Module) Start(_ context.Context) error {
	if m.dbPlugin == nil || m.dbPlugin.Port() == nil {
		return fmt.Errorf("db plugin not set - ensure 'db' plugin is registered")
	}
	if m.userPort == nil {
		return fmt.Errorf("userPort dependency not set")
	}
	if m.eventBus == nil {
		m.logger.Warn("Event bus not set, task events will not be published")
	}

	m.service = NewService(NewRepository(m.dbPlugin.Port()), m.userPort, m.eventBus, m.logger)
	m.logger.Info("Task module started", "depends_on", "user")
	return nil
}

// Stop stops the module.
func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("Task module stopped")
	return nil
}

// Service returns the task service. It is nil before Start.
func (m *Module) Service() *Service {
	return m.service
}

// Health reports whether the module is ready.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	if m.service == nil {
		return mono.HealthStatus{Healthy: false, Message: "not started"}
	}
	return mono.HealthStatus{Healthy: true, Message: "operational"}
}
