// Package web serves the task manager over HTTP with Fiber.
package web

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/task-manager/modules/audit"
	"github.com/example/task-manager/modules/auth"
	"github.com/example/task-manager/modules/cache"
	"github.com/example/task-manager/modules/label"
	"github.com/example/task-manager/modules/status"
	"github.com/example/task-manager/modules/task"
	"github.com/example/task-manager/modules/user"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/session"
)

// Module implements the HTTP server module using Fiber framework.
type Module struct {
	cfg         Config
	app         *fiber.App
	userMod     *user.Module
	statusMod   *status.Module
	labelMod    *label.Module
	taskMod     *task.Module
	auditMod    *audit.Module
	cachePlugin *cache.PluginModule
	checks      map[string]HealthChecker
	logger      types.Logger
}

var _ mono.Module = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates a new HTTP server module.
func NewModule(cfg Config, logger types.Logger) *Module {
	return &Module{
		cfg:    cfg,
		checks: map[string]HealthChecker{},
		logger: logger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "web"
}

// SetDomainModules wires the modules whose services the handlers call.
// They must be registered before this module.
func (m *Module) SetDomainModules(users *user.Module, statuses *status.Module, labels *label.Module, tasks *task.Module) {
	m.userMod = users
	m.statusMod = statuses
	m.labelMod = labels
	m.taskMod = tasks
}

// SetAuditModule exposes the audit trail on GET /audit.
func (m *Module) SetAuditModule(a *audit.Module) {
	m.auditMod = a
}

// SetCachePlugin makes sessions and the login limiter use Redis.
func (m *Module) SetCachePlugin(p *cache.PluginModule) {
	m.cachePlugin = p
}

// AddHealthCheck includes a component in GET /health.
func (m *Module) AddHealthCheck(name string, hc HealthChecker) {
	m.checks[name] = hc
}

// Start builds the Fiber app and starts listening.
func (m *Module) Start(_ context.Context) error {
	svc, err := m.services()
	if err != nil {
		return err
	}

	var sessions, attempts fiber.Storage
	if m.cachePlugin != nil {
		sessions = m.cachePlugin.Sessions()
		attempts = m.cachePlugin.LoginAttempts()
	}

	h := NewHandlers(
		svc,
		auth.NewJWTManager(m.cfg.JWT),
		newSessionStore(m.cfg, sessions),
		m.checks,
		m.cfg.SecureCookies,
		m.logger,
	)
	m.app = NewApp(h, m.cfg, attempts, m.logger)

	addr := fmt.Sprintf(":%d", m.cfg.Port)
	errCh := make(chan error, 1)
	go func() {
		if err := m.app.Listen(addr); err != nil {
			errCh <- err
		}
	}()

	// Wait briefly to catch immediate startup errors (port in use, permission denied)
	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server failed to start: %w", err)
	case <-time.After(100 * time.Millisecond):
	}

	m.logger.Info("HTTP server started", "addr", addr, "redis_sessions", sessions != nil)
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (m *Module) Stop(ctx context.Context) error {
	if m.app != nil {
		if err := m.app.ShutdownWithContext(ctx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
	}
	m.logger.Info("HTTP server stopped")
	return nil
}

// Health reports whether the server is running.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: m.app != nil,
		Message: "operational",
		Details: map[string]any{"port": m.cfg.Port},
	}
}

func (m *Module) services() (Services, error) {
	if m.userMod == nil || m.statusMod == nil || m.labelMod == nil || m.taskMod == nil {
		return Services{}, errors.New("domain modules not set - call SetDomainModules")
	}
	svc := Services{
		Users:    m.userMod.Service(),
		Statuses: m.statusMod.Service(),
		Labels:   m.labelMod.Service(),
		Tasks:    m.taskMod.Service(),
	}
	if svc.Users == nil || svc.Statuses == nil || svc.Labels == nil || svc.Tasks == nil {
		return Services{}, errors.New("domain modules not started - register them before the web module")
	}
	if m.auditMod != nil {
		svc.Audit = m.auditMod
	}
	return svc, nil
}

// newSessionStore creates the store that carries flash messages. A nil
// storage keeps sessions in memory.
func newSessionStore(cfg Config, storage fiber.Storage) *session.Store {
	return session.New(session.Config{
		Expiration:     cfg.SessionTTL,
		Storage:        storage,
		KeyLookup:      "cookie:session_id",
		CookieHTTPOnly: true,
		CookieSecure:   cfg.SecureCookies,
		CookieSameSite: "Lax",
	})
}

// NewApp creates the Fiber app with middleware and routes. A nil attempts
// store keeps login counters in memory.
func NewApp(h *Handlers, cfg Config, attempts fiber.Storage, logger types.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "Task Manager",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(logger),
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${status} ${method} ${path} ${latency}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type,Authorization",
	}))
	app.Use(h.Authenticate)

	loginLimiter := limiter.New(limiter.Config{
		Max:        cfg.LoginRateLimit,
		Expiration: cfg.LoginRateWindow,
		Storage:    attempts,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			logger.Warn("Login rate limit reached", "ip", c.IP())
			return c.Status(fiber.StatusTooManyRequests).JSON(ErrorResponse{
				Error:   "too_many_requests",
				Message: "Too many login attempts, please try again later",
			})
		},
	})

	registerRoutes(app, h, loginLimiter)
	return app
}

func registerRoutes(app *fiber.App, h *Handlers, loginLimiter fiber.Handler) {
	login := h.RequireLogin

	app.Get("/", h.Index)
	app.Get("/health", h.HealthCheck)
	app.Get("/audit", login, h.AuditLog)

	app.Get("/login", h.LoginForm)
	app.Post("/login", loginLimiter, h.Login)
	app.Post("/logout", h.Logout)

	app.Get("/users", login, h.ListUsers)
	app.Get("/users/create", h.RegisterForm)
	app.Post("/users/create", h.Register)
	app.Get("/users/:id/update", login, h.UpdateUserForm)
	app.Post("/users/:id/update", login, h.UpdateUser)
	app.Get("/users/:id/delete", login, h.DeleteUserForm)
	app.Post("/users/:id/delete", login, h.DeleteUser)

	app.Get("/statuses", login, h.ListStatuses)
	app.Get("/statuses/create", login, h.CreateStatusForm)
	app.Post("/statuses/create", login, h.CreateStatus)
	app.Get("/statuses/:id/update", login, h.UpdateStatusForm)
	app.Post("/statuses/:id/update", login, h.UpdateStatus)
	app.Get("/statuses/:id/delete", login, h.DeleteStatusForm)
	app.Post("/statuses/:id/delete", login, h.DeleteStatus)

	app.Get("/labels", login, h.ListLabels)
	app.Get("/labels/create", login, h.CreateLabelForm)
	app.Post("/labels/create", login, h.CreateLabel)
	app.Get("/labels/:id", login, h.ShowLabel)
	app.Get("/labels/:id/update", login, h.UpdateLabelForm)
	app.Post("/labels/:id/update", login, h.UpdateLabel)
	app.Get("/labels/:id/delete", login, h.DeleteLabelForm)
	app.Post("/labels/:id/delete", login, h.DeleteLabel)

	app.Get("/tasks", login, h.ListTasks)
	app.Get("/tasks/create", login, h.CreateTaskForm)
	app.Post("/tasks/create", login, h.CreateTask)
	app.Get("/tasks/:id", login, h.ShowTask)
	app.Get("/tasks/:id/update", login, h.UpdateTaskForm)
	app.Post("/tasks/:id/update", login, h.UpdateTask)
	app.Get("/tasks/:id/delete", login, h.DeleteTaskForm)
	app.Post("/tasks/:id/delete", login, h.DeleteTask)
}

// errorHandler handles errors that escape the handlers.
func errorHandler(logger types.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal Server Error"

		var e *fiber.Error
		if errors.As(err, &e) {
			code = e.Code
			message = e.Message
		}

		if code == fiber.StatusNotFound {
			return c.Status(code).JSON(ErrorResponse{Error: "not_found"})
		}

		logger.Error("HTTP error", "code", code, "message", message, "method", c.Method(), "path", c.Path(), "error", err)
		return c.Status(code).JSON(ErrorResponse{Error: message})
	}
}
