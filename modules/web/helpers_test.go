package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	domain "github.com/example/task-manager/domain/user"
	"github.com/example/task-manager/internal/logtest"
	"github.com/example/task-manager/modules/auth"
	"github.com/example/task-manager/modules/database"
	"github.com/example/task-manager/modules/label"
	"github.com/example/task-manager/modules/status"
	"github.com/example/task-manager/modules/task"
	"github.com/example/task-manager/modules/user"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const testPassword = "secret-pass"

// testEnv is a fully wired app over an in-memory database.
type testEnv struct {
	app    *fiber.App
	db     *gorm.DB
	svc    Services
	logger *logtest.Logger
}

func testConfig() Config {
	return Config{
		SessionTTL:      time.Hour,
		LoginRateLimit:  100,
		LoginRateWindow: time.Minute,
		JWT: auth.JWTConfig{
			SecretKey:           "test-secret",
			AccessTokenDuration: time.Hour,
		},
	}
}

func jwtManager() *auth.JWTManager {
	return auth.NewJWTManager(testConfig().JWT)
}

func setupTestEnv(t *testing.T, opts ...func(*Config, map[string]HealthChecker)) *testEnv {
	t.Helper()

	db, err := database.Open(":memory:", false)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	log := logtest.New()
	svc := Services{
		Users:    user.NewService(user.NewRepository(db), user.NewPasswordHasherWithCost(bcrypt.MinCost), nil, nil, log),
		Statuses: status.NewService(status.NewRepository(db), nil, log),
		Labels:   label.NewService(label.NewRepository(db), nil, log),
		Tasks:    task.NewService(task.NewRepository(db), nil, nil, log),
	}

	cfg := testConfig()
	checks := map[string]HealthChecker{}
	for _, opt := range opts {
		opt(&cfg, checks)
	}

	h := NewHandlers(svc, auth.NewJWTManager(cfg.JWT), newSessionStore(cfg, nil), checks, cfg.SecureCookies, log)
	return &testEnv{app: NewApp(h, cfg, nil, log), db: db, svc: svc, logger: log}
}

// register creates a user through the service.
func (e *testEnv) register(t *testing.T, username string) *domain.User {
	t.Helper()
	u, err := e.svc.Users.Register(context.Background(), &domain.RegisterInput{
		FirstName: strings.ToUpper(username[:1]) + username[1:],
		LastName:  "Tester",
		Username:  username,
		Password1: testPassword,
		Password2: testPassword,
	})
	require.NoError(t, err)
	return u
}

// client is a cookie-carrying test browser.
type client struct {
	t       *testing.T
	app     *fiber.App
	cookies map[string]string
	header  http.Header
}

func (e *testEnv) client(t *testing.T) *client {
	return &client{t: t, app: e.app, cookies: map[string]string{}, header: http.Header{}}
}

// loggedIn returns a client signed in as username.
func (e *testEnv) loggedIn(t *testing.T, username string) *client {
	t.Helper()
	c := e.client(t)
	resp := c.post("/login", url.Values{"username": {username}, "password": {testPassword}})
	require.Equal(t, fiber.StatusFound, resp.StatusCode)
	require.NotEmpty(t, c.cookies[tokenCookie])
	c.messages()
	return c
}

func (c *client) do(method, path string, form url.Values) *http.Response {
	c.t.Helper()

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set("Content-Type", fiber.MIMEApplicationForm)
	}
	for k, v := range c.header {
		req.Header[k] = v
	}
	for name, value := range c.cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}

	resp, err := c.app.Test(req, -1)
	require.NoError(c.t, err)

	for _, ck := range resp.Cookies() {
		if ck.Value == "" || (!ck.Expires.IsZero() && ck.Expires.Before(time.Now())) {
			delete(c.cookies, ck.Name)
			continue
		}
		c.cookies[ck.Name] = ck.Value
	}
	return resp
}

func (c *client) get(path string) *http.Response {
	c.t.Helper()
	return c.do(fiber.MethodGet, path, nil)
}

func (c *client) post(path string, form url.Values) *http.Response {
	c.t.Helper()
	if form == nil {
		form = url.Values{}
	}
	return c.do(fiber.MethodPost, path, form)
}

// messages renders the index page and returns the flashed messages.
func (c *client) messages() []Message {
	c.t.Helper()
	return decodePage(c.t, c.get("/")).Messages
}

// pageBody is the subset of rendered pages the tests look at.
type pageBody struct {
	Page     string            `json:"page"`
	Messages []Message         `json:"messages"`
	Errors   map[string]string `json:"errors"`
	Error    string            `json:"error"`
	User     *struct {
		ID       uint   `json:"id"`
		Username string `json:"username"`
	} `json:"user"`
	Tasks []struct {
		ID       uint   `json:"id"`
		Name     string `json:"name"`
		AuthorID uint   `json:"author_id"`
	} `json:"tasks"`
	Records []struct {
		Type string `json:"type"`
	} `json:"records"`
}

func decodePage(t *testing.T, resp *http.Response) pageBody {
	t.Helper()
	defer resp.Body.Close()
	var p pageBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&p))
	return p
}

func taskNames(p pageBody) []string {
	names := make([]string, 0, len(p.Tasks))
	for _, tk := range p.Tasks {
		names = append(names, tk.Name)
	}
	return names
}

// requireRedirect checks a 302 to location and returns the next page's messages.
func requireRedirect(t *testing.T, c *client, resp *http.Response, location string) []Message {
	t.Helper()
	require.Equal(t, fiber.StatusFound, resp.StatusCode)
	require.Equal(t, location, resp.Header.Get("Location"))
	return c.messages()
}

func message(level, text string) Message {
	return Message{Level: level, Text: text}
}

func claimsFor(id uint, username string) domain.Claims {
	return domain.Claims{UserID: id, Username: username}
}

// doRaw sends body as is; the caller sets the content type.
func (c *client) doRaw(method, path, body string) *http.Response {
	c.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range c.header {
		req.Header[k] = v
	}
	resp, err := c.app.Test(req, -1)
	require.NoError(c.t, err)
	return resp
}
