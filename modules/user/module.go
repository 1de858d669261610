// Package user provides accounts: registration, profile changes, sign-in and
// the guard that keeps referenced users from being deleted.
package user

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	domain "github.com/example/task-manager/domain/user"
	"github.com/example/task-manager/events"
	"github.com/example/task-manager/modules/cache"
	"github.com/example/task-manager/modules/database"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
)

// Config configures the user module.
type Config struct {
	// BcryptCost is the password hashing cost; 0 means DefaultBcryptCost.
	BcryptCost int
	// SuperuserUsername and SuperuserPassword, when both set, bootstrap a
	// superuser on start.
	SuperuserUsername string
	SuperuserPassword string
}

// Module wires the user service into the mono application.
type Module struct {
	cfg      Config
	dbPlugin *database.PluginModule
	cache    *cache.PluginModule
	eventBus mono.EventBus
	service  *Service
	logger   types.Logger
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.UsePluginModule       = (*Module)(nil)
	_ mono.ServiceProviderModule = (*Module)(nil)
	_ mono.EventEmitterModule    = (*Module)(nil)
	_ mono.EventBusAwareModule   = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates the user module.
func NewModule(cfg Config, logger types.Logger) *Module {
	return &Module{
		cfg:    cfg,
		logger: logger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "user"
}

// SetPlugin receives the database plugin and, when registered, the cache plugin.
func (m *Module) SetPlugin(alias string, plugin mono.PluginModule) {
	switch alias {
	case "db":
		if p, ok := plugin.(*database.PluginModule); ok {
			m.dbPlugin = p
		} else {
			m.logger.Error("Invalid plugin type for db", "alias", alias)
		}
	case "cache":
		if p, ok := plugin.(*cache.PluginModule); ok {
			m.cache = p
		} else {
			m.logger.Error("Invalid plugin type for cache", "alias", alias)
		}
	}
}

// SetEventBus receives the event bus.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module publishes.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.UserRegisteredV1.ToBase(),
		events.UserDeleteBlockedV1.ToBase(),
	}
}

// RegisterServices exposes user lookups to other modules.
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "get-user", json.Unmarshal, json.Marshal, m.getUser,
	); err != nil {
		return fmt.Errorf("failed to register get-user service: %w", err)
	}
	return nil
}

func (m *Module) getUser(ctx context.Context, req GetUserRequest, _ *mono.Msg) (GetUserResponse, error) {
	if m.service == nil {
		return GetUserResponse{}, errors.New("user module not started")
	}

	u, err := m.service.GetByID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return GetUserResponse{Found: false}, nil
		}
		return GetUserResponse{}, err
	}
	return GetUserResponse{User: ToInfo(u), Found: true}, nil
}

// Start builds the service on top of the shared store.
func (m *Module) Start(ctx context.Context) error {
	if m.dbPlugin == nil || m.dbPlugin.Port() == nil {
		return fmt.Errorf("db plugin not set - ensure 'db' plugin is registered")
	}

	var c cache.Cache
	if m.cache != nil {
		c = m.cache.Lookups()
	}

	hasher := NewPasswordHasher()
	if m.cfg.BcryptCost != 0 {
		hasher = NewPasswordHasherWithCost(m.cfg.BcryptCost)
	}
	m.service = NewService(NewRepository(m.dbPlugin.Port()), hasher, c, m.eventBus, m.logger)

	if m.cfg.SuperuserUsername != "" && m.cfg.SuperuserPassword != "" {
		if _, err := m.service.EnsureSuperuser(ctx, m.cfg.SuperuserUsername, m.cfg.SuperuserPassword); err != nil {
			return fmt.Errorf("failed to bootstrap superuser: %w", err)
		}
	}

	m.logger.Info("User module started", "cached", c != nil)
	return nil
}

// Stop stops the module. The connection belongs to the db plugin.
func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("User module stopped")
	return nil
}

// Service returns the user service. It is nil before Start.
func (m *Module) Service() *Service {
	return m.service
}

// Health reports whether the module is ready.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	if m.service == nil {
		return mono.HealthStatus{Healthy: false, Message: "not started"}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{"cached": m.cache != nil},
	}
}

// ToInfo converts a user into its shared view.
func ToInfo(u *domain.User) *UserInfo {
	return &UserInfo{
		ID:          u.ID,
		Username:    u.Username,
		FullName:    u.FullName(),
		IsSuperuser: u.IsSuperuser,
	}
}
