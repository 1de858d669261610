// Package status manages task statuses and guards referenced ones from deletion.
package status

import (
	"context"
	"fmt"

	"github.com/example/task-manager/events"
	"github.com/example/task-manager/modules/database"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
)

// Module wires the status service into the mono application.
type Module struct {
	dbPlugin *database.PluginModule
	eventBus mono.EventBus
	service  *Service
	logger   types.Logger
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.UsePluginModule       = (*Module)(nil)
	_ mono.EventEmitterModule    = (*Module)(nil)
	_ mono.EventBusAwareModule   = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates the status module.
func NewModule(logger types.Logger) *Module {
	return &Module{logger: logger}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "status"
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
		events.StatusDeleteBlockedV1.ToBase(),
	}
}

// Start builds the service.
func (m *Module) Start(_ context.Context) error {
	if m.dbPlugin == nil || m.dbPlugin.Port() == nil {
		return fmt.Errorf("db plugin not set - ensure 'db' plugin is registered")
	}
	m.service = NewService(NewRepository(m.dbPlugin.Port()), m.eventBus, m.logger)
	m.logger.Info("Status module started")
	return nil
}

// Stop stops the module.
func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("Status module stopped")
	return nil
}

// Service returns the status service. It is nil before Start.
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
