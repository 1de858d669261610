// Package database provides the shared GORM store as a mono plugin.
package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/example/task-manager/domain/label"
	"github.com/example/task-manager/domain/status"
	"github.com/example/task-manager/domain/task"
	"github.com/example/task-manager/domain/user"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// PluginModule owns the single database connection shared by the domain modules.
// Plugins start first and stop last, so the store outlives every consumer.
type PluginModule struct {
	container types.ServiceContainer
	db        *gorm.DB
	dbPath    string
	debug     bool
	logger    types.Logger
}

// Compile-time interface checks.
var (
	_ mono.PluginModule          = (*PluginModule)(nil)
	_ mono.HealthCheckableModule = (*PluginModule)(nil)
)

// NewPluginModule creates the database plugin for the SQLite file at dbPath.
// Use ":memory:" for a throwaway store.
func NewPluginModule(dbPath string, debug bool, logger types.Logger) *PluginModule {
	return &PluginModule{
		dbPath: dbPath,
		debug:  debug,
		logger: logger,
	}
}

// Name returns the module name.
func (m *PluginModule) Name() string {
	return "database"
}

// Start opens the connection and migrates the schema.
func (m *PluginModule) Start(_ context.Context) error {
	db, err := Open(m.dbPath, m.debug)
	if err != nil {
		return err
	}
	m.db = db
	m.logger.Info("Database connection opened", "driver", "sqlite", "path", m.dbPath)
	return nil
}

// Stop closes the connection.
func (m *PluginModule) Stop(_ context.Context) error {
	if m.db == nil {
		return nil
	}

	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		m.logger.Error("Failed to close database connection", "path", m.dbPath, "error", err)
		return fmt.Errorf("failed to close database: %w", err)
	}

	m.logger.Info("Database connection closed", "path", m.dbPath)
	return nil
}

// SetContainer sets the service container for this plugin.
func (m *PluginModule) SetContainer(container types.ServiceContainer) {
	m.container = container
}

// Container returns the service container for this plugin.
func (m *PluginModule) Container() types.ServiceContainer {
	return m.container
}

// Port returns the shared connection. It is nil before Start.
func (m *PluginModule) Port() *gorm.DB {
	return m.db
}

// Health pings the database.
func (m *PluginModule) Health(ctx context.Context) mono.HealthStatus {
	if m.db == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "database not initialized",
		}
	}

	sqlDB, err := m.db.DB()
	if err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("failed to get sql.DB: %v", err),
		}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("database ping failed: %v", err),
		}
	}

	stats := sqlDB.Stats()
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"driver":           "sqlite",
			"path":             m.dbPath,
			"open_connections": stats.OpenConnections,
		},
	}
}

// Open connects to the SQLite database at path with foreign key enforcement
// and migrates every entity.
func Open(path string, debug bool) (*gorm.DB, error) {
	logLevel := logger.Silent
	if debug {
		logLevel = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(dsn(path)), &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// An in-memory database lives only as long as its connection.
	if isMemory(path) {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get sql.DB: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates the schema for all entities.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&user.User{}, &status.Status{}, &label.Label{}, &task.Task{}); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func isMemory(path string) bool {
	return path == ":memory:" || strings.HasPrefix(path, "file::memory:")
}

func dsn(path string) string {
	if strings.Contains(path, "_foreign_keys=") {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_foreign_keys=on"
}
