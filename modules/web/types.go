package web

import (
	"time"

	"github.com/example/task-manager/modules/audit"
	"github.com/example/task-manager/modules/auth"
	"github.com/example/task-manager/modules/label"
	"github.com/example/task-manager/modules/status"
	"github.com/example/task-manager/modules/task"
	"github.com/example/task-manager/modules/user"
)

// Config holds the HTTP settings of the web module.
type Config struct {
	Port            int
	SessionTTL      time.Duration
	LoginRateLimit  int
	LoginRateWindow time.Duration
	JWT             auth.JWTConfig
	// SecureCookies marks the session and token cookies Secure.
	SecureCookies bool
}

// Message levels.
const (
	LevelSuccess = "success"
	LevelInfo    = "info"
	LevelError   = "error"
)

// Message is a one-shot notice shown on the next rendered page.
type Message struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

// Services are the domain services the handlers call.
type Services struct {
	Users    *user.Service
	Statuses *status.Service
	Labels   *label.Service
	Tasks    *task.Service
	Audit    AuditTrail // optional
}

// AuditTrail exposes the recorded audit events.
type AuditTrail interface {
	Records() []audit.Record
}

// ErrorResponse is the body of non-page error responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
