package cache

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/storage/redis/v3"
)

// Key namespaces below the configured prefix.
const (
	lookupNamespace  = "lookup:"
	sessionNamespace = "session:"
	loginNamespace   = "login:"
	healthKey        = "health"
)

const (
	defaultRedisHost = "127.0.0.1"
	defaultRedisPort = 6379
	probeTimeout     = 2 * time.Second
	poolSize         = 50
)

// PluginModule owns the Redis connection. main registers it under the
// "cache" alias only when REDIS_ADDR is set.
type PluginModule struct {
	container types.ServiceContainer
	addr      string
	prefix    string
	ttl       time.Duration
	conn      *redis.Storage
	logger    types.Logger
}

var (
	_ mono.PluginModule          = (*PluginModule)(nil)
	_ mono.HealthCheckableModule = (*PluginModule)(nil)
)

// NewPluginModule creates the plugin for the Redis server at addr. Every key
// it writes starts with prefix; lookup entries live for ttl.
func NewPluginModule(addr, prefix string, ttl time.Duration, logger types.Logger) *PluginModule {
	return &PluginModule{
		addr:   addr,
		prefix: prefix,
		ttl:    ttl,
		logger: logger,
	}
}

func (m *PluginModule) Name() string {
	return "cache"
}

// Start connects to Redis. The server is probed first because redis.New
// panics when it cannot connect.
func (m *PluginModule) Start(_ context.Context) error {
	probe, err := net.DialTimeout("tcp", m.addr, probeTimeout)
	if err != nil {
		return fmt.Errorf("redis not reachable at %s: %w", m.addr, err)
	}
	probe.Close()

	host, port := splitAddr(m.addr)
	m.conn = redis.New(redis.Config{
		Host:     host,
		Port:     port,
		PoolSize: poolSize,
	})

	m.logger.Info("Connected to Redis", "addr", m.addr, "prefix", m.prefix, "lookup_ttl", m.ttl.String())
	return nil
}

func (m *PluginModule) Stop(_ context.Context) error {
	if m.conn == nil {
		return nil
	}
	if err := m.conn.Close(); err != nil {
		m.logger.Error("Failed to close Redis connection", "addr", m.addr, "error", err)
		return fmt.Errorf("failed to close redis connection: %w", err)
	}
	m.conn = nil
	m.logger.Info("Redis connection closed", "addr", m.addr)
	return nil
}

func (m *PluginModule) SetContainer(container types.ServiceContainer) {
	m.container = container
}

func (m *PluginModule) Container() types.ServiceContainer {
	return m.container
}

func (m *PluginModule) namespace(name string) Namespace {
	return NewNamespace(m.conn, m.prefix+name)
}

// Lookups returns the cache for domain lookups such as users by id.
// It is nil before Start.
func (m *PluginModule) Lookups() Cache {
	if m.conn == nil {
		return nil
	}
	return NewJSONCache(m.namespace(lookupNamespace), m.ttl)
}

// Sessions returns the store for HTTP sessions, nil before Start.
func (m *PluginModule) Sessions() fiber.Storage {
	if m.conn == nil {
		return nil
	}
	return m.namespace(sessionNamespace)
}

// LoginAttempts returns the store for the login rate limiter, nil before Start.
func (m *PluginModule) LoginAttempts() fiber.Storage {
	if m.conn == nil {
		return nil
	}
	return m.namespace(loginNamespace)
}

// Health reads a key that is never written; only a transport error is unhealthy.
func (m *PluginModule) Health(ctx context.Context) mono.HealthStatus {
	if m.conn == nil {
		return mono.HealthStatus{Healthy: false, Message: "not connected"}
	}
	if _, err := m.conn.GetWithContext(ctx, m.prefix+healthKey); err != nil {
		return mono.HealthStatus{Healthy: false, Message: fmt.Sprintf("redis read failed: %v", err)}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"addr":       m.addr,
			"prefix":     m.prefix,
			"lookup_ttl": m.ttl.String(),
		},
	}
}

// splitAddr parses "host:port". Missing or malformed parts fall back to
// 127.0.0.1 and 6379.
func splitAddr(addr string) (string, int) {
	host, rawPort, err := net.SplitHostPort(addr)
	if err != nil {
		return defaultRedisHost, defaultRedisPort
	}
	if host == "" {
		host = defaultRedisHost
	}
	port, err := strconv.Atoi(rawPort)
	if err != nil {
		return host, defaultRedisPort
	}
	return host, port
}
