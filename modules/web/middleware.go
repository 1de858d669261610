package web

import (
	"errors"
	"net/url"
	"strings"

	"github.com/example/task-manager/domain/policy"
	domain "github.com/example/task-manager/domain/user"
	"github.com/example/task-manager/modules/user"
	"github.com/gofiber/fiber/v2"
)

const (
	// tokenCookie carries the access token of a signed-in browser.
	tokenCookie = "access_token"
	// userContextKey is the key used to store the signed-in user in the Fiber context.
	userContextKey = "user"
)

// Authenticate resolves the access token from the Authorization header or
// the token cookie and stores the user in the context. Requests without a
// valid token continue anonymously.
func (h *Handlers) Authenticate(c *fiber.Ctx) error {
	token, fromCookie := bearerToken(c), false
	if token == "" {
		token, fromCookie = c.Cookies(tokenCookie), true
	}
	if token == "" {
		return c.Next()
	}

	claims, err := h.jwt.ValidateAccessToken(token)
	if err != nil {
		h.logger.Debug("Rejected access token", "path", c.Path(), "error", err)
		if fromCookie {
			h.clearToken(c)
		}
		return c.Next()
	}

	u, err := h.svc.Users.GetByID(c.UserContext(), claims.UserID)
	if err != nil {
		if !errors.Is(err, user.ErrNotFound) {
			h.logger.Error("Failed to load signed-in user", "user_id", claims.UserID, "error", err)
		} else if fromCookie {
			h.clearToken(c)
		}
		return c.Next()
	}

	c.Locals(userContextKey, u)
	return c.Next()
}

// RequireLogin sends anonymous requests to the login page without running
// the handler.
func (h *Handlers) RequireLogin(c *fiber.Ctx) error {
	if currentUser(c) != nil {
		return c.Next()
	}
	location := "/login?next=" + url.QueryEscape(c.OriginalURL())
	return h.redirect(c, location, LevelError, msgLoginRequired)
}

func bearerToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

// currentUser returns the signed-in user, or nil for anonymous requests.
func currentUser(c *fiber.Ctx) *domain.User {
	u, _ := c.Locals(userContextKey).(*domain.User)
	return u
}

// actorOf returns the policy actor of the request.
func actorOf(c *fiber.Ctx) policy.Actor {
	u := currentUser(c)
	if u == nil {
		return policy.Anonymous
	}
	return policy.Actor{ID: u.ID, Username: u.Username, IsSuperuser: u.IsSuperuser}
}

// safeNext returns next when it is a local path, and fallback otherwise.
func safeNext(next, fallback string) string {
	if strings.HasPrefix(next, "/") && !strings.HasPrefix(next, "//") && !strings.HasPrefix(next, "/\\") {
		return next
	}
	return fallback
}
