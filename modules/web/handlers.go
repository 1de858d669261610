package web

import (
	"context"
	"sort"
	"time"

	"github.com/example/task-manager/modules/audit"
	"github.com/example/task-manager/modules/auth"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
)

// HealthChecker is anything that reports its health: modules and plugins.
type HealthChecker interface {
	Health(ctx context.Context) mono.HealthStatus
}

// Handlers contains the HTTP request handlers.
type Handlers struct {
	svc      Services
	jwt      *auth.JWTManager
	sessions *session.Store
	checks   map[string]HealthChecker
	secure   bool
	logger   types.Logger
}

// NewHandlers creates the handlers.
func NewHandlers(svc Services, jwt *auth.JWTManager, sessions *session.Store, checks map[string]HealthChecker, secure bool, logger types.Logger) *Handlers {
	if checks == nil {
		checks = map[string]HealthChecker{}
	}
	return &Handlers{
		svc:      svc,
		jwt:      jwt,
		sessions: sessions,
		checks:   checks,
		secure:   secure,
		logger:   logger,
	}
}

// Index handles GET /.
func (h *Handlers) Index(c *fiber.Ctx) error {
	return h.render(c, "index", nil)
}

// HealthCheck handles GET /health. It answers 503 when any component is unhealthy.
func (h *Handlers) HealthCheck(c *fiber.Ctx) error {
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	healthy := true
	components := make(map[string]mono.HealthStatus, len(names))
	for _, name := range names {
		st := h.checks[name].Health(c.UserContext())
		components[name] = st
		if !st.Healthy {
			healthy = false
		}
	}

	code, state := fiber.StatusOK, "healthy"
	if !healthy {
		code, state = fiber.StatusServiceUnavailable, "unhealthy"
	}
	return c.Status(code).JSON(fiber.Map{
		"status":     state,
		"components": components,
		"timestamp":  time.Now().UTC(),
	})
}

// AuditLog handles GET /audit.
func (h *Handlers) AuditLog(c *fiber.Ctx) error {
	records := []audit.Record{}
	if h.svc.Audit != nil {
		records = h.svc.Audit.Records()
	}
	return h.render(c, "audit", fiber.Map{"records": records})
}
