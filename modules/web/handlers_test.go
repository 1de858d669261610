package web

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/example/task-manager/domain/policy"
	domainstatus "github.com/example/task-manager/domain/status"
	domaintask "github.com/example/task-manager/domain/task"
	"github.com/example/task-manager/modules/audit"
	"github.com/go-monolith/mono"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnonymousIsSentToLogin(t *testing.T) {
	env := setupTestEnv(t)
	owner := env.register(t, "owner")
	st, err := env.svc.Statuses.Create(context.Background(), &domainstatus.Input{Name: "New"})
	require.NoError(t, err)
	tk, err := env.svc.Tasks.Create(context.Background(), policy.Actor{ID: owner.ID},
		&domaintask.Input{Name: "Keep", Description: "d", StatusID: st.ID})
	require.NoError(t, err)

	sid := strconv.FormatUint(uint64(st.ID), 10)
	tid := strconv.FormatUint(uint64(tk.ID), 10)
	uid := strconv.FormatUint(uint64(owner.ID), 10)

	routes := []struct {
		method string
		path   string
	}{
		{fiber.MethodGet, "/users"},
		{fiber.MethodGet, "/users/" + uid + "/update"},
		{fiber.MethodPost, "/users/" + uid + "/update"},
		{fiber.MethodPost, "/users/" + uid + "/delete"},
		{fiber.MethodGet, "/statuses"},
		{fiber.MethodPost, "/statuses/create"},
		{fiber.MethodPost, "/statuses/" + sid + "/update"},
		{fiber.MethodPost, "/statuses/" + sid + "/delete"},
		{fiber.MethodGet, "/labels"},
		{fiber.MethodPost, "/labels/create"},
		{fiber.MethodGet, "/tasks"},
		{fiber.MethodGet, "/tasks/" + tid},
		{fiber.MethodPost, "/tasks/create"},
		{fiber.MethodPost, "/tasks/" + tid + "/update"},
		{fiber.MethodPost, "/tasks/" + tid + "/delete"},
		{fiber.MethodGet, "/audit"},
	}

	form := url.Values{"name": {"Changed"}, "description": {"x"}, "status": {sid}, "username": {"hijack"}}
	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			c := env.client(t)
			resp := c.do(rt.method, rt.path, form)

			require.Equal(t, fiber.StatusFound, resp.StatusCode)
			assert.True(t, strings.HasPrefix(resp.Header.Get("Location"), "/login?next="), resp.Header.Get("Location"))
			assert.Equal(t, []Message{message(LevelError, msgLoginRequired)}, c.messages())
		})
	}

	ctx := context.Background()
	statuses, _ := env.svc.Statuses.List(ctx)
	require.Len(t, statuses, 1)
	assert.Equal(t, "New", statuses[0].Name)
	labels, _ := env.svc.Labels.List(ctx)
	assert.Empty(t, labels)
	tasks, _ := env.svc.Tasks.List(ctx, domaintask.Filter{})
	require.Len(t, tasks, 1)
	assert.Equal(t, "Keep", tasks[0].Name)
	stored, err := env.svc.Users.GetByID(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, "owner", stored.Username)
}

func TestLoginAndLogout(t *testing.T) {
	env := setupTestEnv(t)
	env.register(t, "alice")
	c := env.client(t)

	resp := c.post("/login", url.Values{"username": {"alice"}, "password": {"wrong"}})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	page := decodePage(t, resp)
	assert.Equal(t, "login", page.Page)
	assert.Equal(t, msgBadLogin, page.Errors["__all__"])
	assert.Empty(t, c.cookies[tokenCookie])

	resp = c.post("/login", url.Values{"username": {""}})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, decodePage(t, resp).Errors, "username")

	resp = c.post("/login", url.Values{"username": {"alice"}, "password": {testPassword}})
	assert.Equal(t, []Message{message(LevelSuccess, msgLoggedIn)}, requireRedirect(t, c, resp, "/"))
	assert.NotEmpty(t, c.cookies[tokenCookie])

	page = decodePage(t, c.get("/"))
	require.NotNil(t, page.User)
	assert.Equal(t, "alice", page.User.Username)
	assert.Empty(t, page.Messages, "flash messages are shown once")

	resp = c.post("/logout", nil)
	assert.Equal(t, []Message{message(LevelInfo, msgLoggedOut)}, requireRedirect(t, c, resp, "/"))
	assert.Empty(t, c.cookies[tokenCookie])
	assert.Nil(t, decodePage(t, c.get("/")).User)
}

func TestLoginFollowsNext(t *testing.T) {
	env := setupTestEnv(t)
	env.register(t, "alice")
	c := env.client(t)

	form := url.Values{"username": {"alice"}, "password": {testPassword}}
	resp := c.post("/login?next="+url.QueryEscape("/tasks"), form)
	require.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/tasks", resp.Header.Get("Location"))

	resp = c.post("/login?next="+url.QueryEscape("//evil.example"), form)
	assert.Equal(t, "/", resp.Header.Get("Location"))
}

func TestSecureCookies(t *testing.T) {
	for _, secure := range []bool{false, true} {
		t.Run(strconv.FormatBool(secure), func(t *testing.T) {
			env := setupTestEnv(t, func(cfg *Config, _ map[string]HealthChecker) {
				cfg.SecureCookies = secure
			})
			env.register(t, "alice")

			resp := env.client(t).post("/login", url.Values{"username": {"alice"}, "password": {testPassword}})
			require.Equal(t, fiber.StatusFound, resp.StatusCode)

			seen := map[string]bool{}
			for _, ck := range resp.Cookies() {
				seen[ck.Name] = true
				assert.Equal(t, secure, ck.Secure, "cookie %s", ck.Name)
			}
			assert.True(t, seen[tokenCookie])
			assert.True(t, seen["session_id"])
		})
	}
}

func TestBearerToken(t *testing.T) {
	env := setupTestEnv(t)
	alice := env.register(t, "alice")

	token, err := jwtManager().GenerateAccessToken(claimsFor(alice.ID, alice.Username))
	require.NoError(t, err)

	c := env.client(t)
	c.header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	resp := c.get("/tasks")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "tasks/list", decodePage(t, resp).Page)

	c.header.Set(fiber.HeaderAuthorization, "Bearer not-a-token")
	resp = c.get("/tasks")
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
}

func TestLoginRateLimit(t *testing.T) {
	env := setupTestEnv(t, func(cfg *Config, _ map[string]HealthChecker) {
		cfg.LoginRateLimit = 2
	})
	c := env.client(t)

	form := url.Values{"username": {"nobody"}, "password": {"x"}}
	for i := 0; i < 2; i++ {
		assert.Equal(t, fiber.StatusOK, c.post("/login", form).StatusCode)
	}
	resp := c.post("/login", form)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.True(t, env.logger.Has("warn", "Login rate limit reached"))

	// Other pages are not limited.
	assert.Equal(t, fiber.StatusOK, c.get("/login").StatusCode)
}

func TestRegister(t *testing.T) {
	env := setupTestEnv(t)
	c := env.client(t)

	resp := c.get("/users/create")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "users/create", decodePage(t, resp).Page)

	form := url.Values{
		"first_name": {"Alice"},
		"last_name":  {"Liddell"},
		"username":   {"alice"},
		"password1":  {testPassword},
		"password2":  {"different"},
	}
	resp = c.post("/users/create", form)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, decodePage(t, resp).Errors, "password2")

	form.Set("password2", testPassword)
	resp = c.post("/users/create", form)
	assert.Equal(t, []Message{message(LevelSuccess, msgUserRegistered)}, requireRedirect(t, c, resp, "/login"))

	resp = c.post("/users/create", form)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, decodePage(t, resp).Errors, "username")

	users, err := env.svc.Users.List(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "Alice Liddell", users[0].FullName())
}

func TestUserUpdatePolicy(t *testing.T) {
	env := setupTestEnv(t)
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	c := env.loggedIn(t, "alice")
	ctx := context.Background()

	bobURL := "/users/" + strconv.FormatUint(uint64(bob.ID), 10)
	aliceURL := "/users/" + strconv.FormatUint(uint64(alice.ID), 10)
	form := url.Values{
		"first_name": {"New"},
		"last_name":  {"Name"},
		"username":   {"renamed"},
		"password1":  {"new-pass"},
		"password2":  {"new-pass"},
	}

	for _, rt := range []struct{ method, path string }{
		{fiber.MethodGet, bobURL + "/update"},
		{fiber.MethodPost, bobURL + "/update"},
		{fiber.MethodGet, bobURL + "/delete"},
		{fiber.MethodPost, bobURL + "/delete"},
	} {
		resp := c.do(rt.method, rt.path, form)
		assert.Equal(t, []Message{message(LevelError, msgUserForbidden)}, requireRedirect(t, c, resp, "/users"), rt.path)
	}
	stored, err := env.svc.Users.GetByID(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, "bob", stored.Username)

	resp := c.get(aliceURL + "/update")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "users/update", decodePage(t, resp).Page)

	resp = c.post(aliceURL+"/update", form)
	assert.Equal(t, []Message{message(LevelSuccess, msgUserChanged)}, requireRedirect(t, c, resp, "/users"))
	stored, err = env.svc.Users.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", stored.Username)

	resp = c.get("/users/999/update")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", decodePage(t, resp).Error)
}

func TestSuperuserMayChangeOthers(t *testing.T) {
	env := setupTestEnv(t)
	bob := env.register(t, "bob")
	created, err := env.svc.Users.EnsureSuperuser(context.Background(), "admin", testPassword)
	require.NoError(t, err)
	require.True(t, created)

	c := env.loggedIn(t, "admin")
	resp := c.post("/users/"+strconv.FormatUint(uint64(bob.ID), 10)+"/delete", nil)
	assert.Equal(t, []Message{message(LevelSuccess, msgUserDeleted)}, requireRedirect(t, c, resp, "/users"))
	assert.NotEmpty(t, c.cookies[tokenCookie], "deleting someone else keeps the admin signed in")
}

func TestUserDeleteGuard(t *testing.T) {
	env := setupTestEnv(t)
	alice := env.register(t, "alice")
	env.register(t, "bob")
	ctx := context.Background()

	st, err := env.svc.Statuses.Create(ctx, &domainstatus.Input{Name: "New"})
	require.NoError(t, err)
	_, err = env.svc.Tasks.Create(ctx, policy.Actor{ID: alice.ID}, &domaintask.Input{Name: "t", Description: "d", StatusID: st.ID})
	require.NoError(t, err)

	c := env.loggedIn(t, "alice")
	resp := c.post("/users/"+strconv.FormatUint(uint64(alice.ID), 10)+"/delete", nil)
	assert.Equal(t, []Message{message(LevelError, msgUserInUse)}, requireRedirect(t, c, resp, "/users"))
	_, err = env.svc.Users.GetByID(ctx, alice.ID)
	require.NoError(t, err, "referenced user must survive")

	bobClient := env.loggedIn(t, "bob")
	bob, err := env.svc.Users.Authenticate(ctx, "bob", testPassword)
	require.NoError(t, err)
	resp = bobClient.post("/users/"+strconv.FormatUint(uint64(bob.ID), 10)+"/delete", nil)
	require.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Empty(t, bobClient.cookies[tokenCookie], "deleting yourself signs you out")
	assert.Equal(t, []Message{message(LevelSuccess, msgUserDeleted)}, bobClient.messages())
}

func TestNotFoundRoutes(t *testing.T) {
	env := setupTestEnv(t)
	env.register(t, "alice")
	c := env.loggedIn(t, "alice")

	for _, rt := range []struct{ method, path string }{
		{fiber.MethodGet, "/tasks/999"},
		{fiber.MethodGet, "/tasks/abc"},
		{fiber.MethodGet, "/tasks/0/update"},
		{fiber.MethodPost, "/tasks/999/update"},
		{fiber.MethodPost, "/tasks/999/delete"},
		{fiber.MethodGet, "/labels/999"},
		{fiber.MethodGet, "/statuses/999/update"},
		{fiber.MethodPost, "/statuses/999/delete"},
		{fiber.MethodPost, "/labels/x/delete"},
		{fiber.MethodGet, "/no/such/page"},
	} {
		resp := c.do(rt.method, rt.path, url.Values{"name": {"x"}, "description": {"d"}, "status": {"1"}})
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode, rt.path)
		assert.Equal(t, "not_found", decodePage(t, resp).Error, rt.path)
	}
}

type fakeCheck struct{ healthy bool }

func (f fakeCheck) Health(context.Context) mono.HealthStatus {
	return mono.HealthStatus{Healthy: f.healthy, Message: "fake"}
}

func TestHealthCheck(t *testing.T) {
	env := setupTestEnv(t, func(_ *Config, checks map[string]HealthChecker) {
		checks["db"] = fakeCheck{healthy: true}
	})
	assert.Equal(t, fiber.StatusOK, env.client(t).get("/health").StatusCode)

	env = setupTestEnv(t, func(_ *Config, checks map[string]HealthChecker) {
		checks["db"] = fakeCheck{healthy: true}
		checks["cache"] = fakeCheck{healthy: false}
	})
	assert.Equal(t, fiber.StatusServiceUnavailable, env.client(t).get("/health").StatusCode)
}

type staticTrail []audit.Record

func (s staticTrail) Records() []audit.Record { return s }

func TestAuditLog(t *testing.T) {
	env := setupTestEnv(t)
	env.register(t, "alice")
	c := env.loggedIn(t, "alice")

	page := decodePage(t, c.get("/audit"))
	assert.Equal(t, "audit", page.Page)
	assert.Empty(t, page.Records)

	env.svc.Audit = staticTrail{{Type: "task_created"}}
	h := NewHandlers(env.svc, jwtManager(), newSessionStore(testConfig(), nil), nil, false, env.logger)
	app := NewApp(h, testConfig(), nil, env.logger)
	c = &client{t: t, app: app, cookies: c.cookies, header: c.header}

	page = decodePage(t, c.get("/audit"))
	require.Len(t, page.Records, 1)
	assert.Equal(t, "task_created", page.Records[0].Type)
}
