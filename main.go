package main

import (
	"context"
	"log"
	"os"

	"github.com/example/task-manager/config"
	"github.com/example/task-manager/modules/audit"
	"github.com/example/task-manager/modules/auth"
	"github.com/example/task-manager/modules/cache"
	"github.com/example/task-manager/modules/database"
	"github.com/example/task-manager/modules/label"
	"github.com/example/task-manager/modules/status"
	"github.com/example/task-manager/modules/task"
	"github.com/example/task-manager/modules/user"
	"github.com/example/task-manager/modules/web"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Println("=== Task Manager ===")
	log.Printf("HTTP Port: %d", cfg.HTTPPort)
	log.Printf("Database: %s", cfg.DBPath)
	if cfg.RedisAddr != "" {
		log.Printf("Redis: %s", cfg.RedisAddr)
	} else {
		log.Println("Redis: disabled (in-memory sessions, no user cache)")
	}
	if cfg.UsingDevSecret() {
		log.Println("Warning: JWT_SECRET is not set, using the development secret")
	}

	logLevel := mono.WithLogLevel(mono.LogLevelInfo)
	if cfg.QuietLogs() {
		logLevel = mono.WithLogLevel(mono.LogLevelError)
	}

	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(cfg.ShutdownTimeout),
		logLevel,
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create mono application: %v", err)
	}

	// Plugins start before modules; modules receive them through SetPlugin.
	dbPlugin := database.NewPluginModule(cfg.DBPath, cfg.DBDebug, app.Logger())
	if err := app.RegisterPlugin(dbPlugin, "db"); err != nil {
		log.Fatalf("Failed to register database plugin: %v", err)
	}

	var cachePlugin *cache.PluginModule
	if cfg.RedisAddr != "" {
		cachePlugin = cache.NewPluginModule(cfg.RedisAddr, cfg.CachePrefix, cfg.CacheTTL, app.Logger())
		if err := app.RegisterPlugin(cachePlugin, "cache"); err != nil {
			log.Fatalf("Failed to register cache plugin: %v", err)
		}
	}

	// Create modules
	userModule := user.NewModule(user.Config{
		SuperuserUsername: cfg.SuperuserUsername,
		SuperuserPassword: cfg.SuperuserPassword,
	}, app.Logger())
	statusModule := status.NewModule(app.Logger())
	labelModule := label.NewModule(app.Logger())
	taskModule := task.NewModule(app.Logger())
	auditModule := audit.NewModule(audit.DefaultCapacity, app.Logger())
	webModule := web.NewModule(web.Config{
		Port:            cfg.HTTPPort,
		SessionTTL:      cfg.SessionTTL,
		LoginRateLimit:  cfg.LoginRateLimit,
		LoginRateWindow: cfg.LoginRateWindow,
		SecureCookies:   cfg.SecureCookies,
		JWT: auth.JWTConfig{
			SecretKey:           cfg.JWTSecret,
			AccessTokenDuration: cfg.AccessTokenTTL,
		},
	}, app.Logger())

	// Wire up dependencies
	webModule.SetDomainModules(userModule, statusModule, labelModule, taskModule)
	webModule.SetAuditModule(auditModule)
	webModule.AddHealthCheck("database", dbPlugin)
	webModule.AddHealthCheck("user", userModule)
	webModule.AddHealthCheck("status", statusModule)
	webModule.AddHealthCheck("label", labelModule)
	webModule.AddHealthCheck("task", taskModule)
	if cachePlugin != nil {
		webModule.SetCachePlugin(cachePlugin)
		webModule.AddHealthCheck("cache", cachePlugin)
	}

	// Register modules; web last so every service exists when it starts.
	for _, m := range []mono.Module{userModule, statusModule, labelModule, taskModule, auditModule, webModule} {
		if err := app.Register(m); err != nil {
			log.Fatalf("Failed to register %s module: %v", m.Name(), err)
		}
	}

	ctx := context.Background()
	if err := app.Start(ctx); err != nil {
		log.Fatalf("Failed to start app: %v", err)
	}

	log.Println("=== Application Started ===")
	log.Printf("Open http://localhost:%d", cfg.HTTPPort)
	log.Println("Endpoints:")
	log.Println("  GET       /health                 - Health of all components")
	log.Println("  GET/POST  /login, POST /logout    - Sign in and out")
	log.Println("  GET/POST  /users[/create|/:id/update|/:id/delete]")
	log.Println("  GET/POST  /statuses[/create|/:id/update|/:id/delete]")
	log.Println("  GET/POST  /labels[/create|/:id|/:id/update|/:id/delete]")
	log.Println("  GET/POST  /tasks[/create|/:id|/:id/update|/:id/delete]")
	log.Println("  GET       /audit                  - Recent domain events")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown")

	// Setup graceful shutdown
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}
