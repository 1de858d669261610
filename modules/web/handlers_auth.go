package web

import (
	"errors"
	"time"

	domain "github.com/example/task-manager/domain/user"
	"github.com/example/task-manager/domain/validation"
	"github.com/example/task-manager/modules/user"
	"github.com/gofiber/fiber/v2"
)

// LoginForm handles GET /login.
func (h *Handlers) LoginForm(c *fiber.Ctx) error {
	return h.render(c, "login", fiber.Map{
		"form": fiber.Map{"username": ""},
		"next": c.Query("next"),
	})
}

// Login handles POST /login.
func (h *Handlers) Login(c *fiber.Ctx) error {
	var in domain.LoginInput
	data := fiber.Map{"next": c.Query("next")}

	if err := c.BodyParser(&in); err != nil {
		return h.renderForm(c, "login", fiber.Map{"username": ""}, unreadableForm(), data)
	}
	form := fiber.Map{"username": in.Username}

	if err := in.Validate(); err != nil {
		return h.failForm(c, err, "login", form, data, "/login")
	}

	u, err := h.svc.Users.Authenticate(c.UserContext(), in.Username, in.Password)
	if err != nil {
		if errors.Is(err, user.ErrInvalidCredentials) {
			h.logger.Info("Failed login", "username", in.Username, "ip", c.IP())
			return h.renderForm(c, "login", form, validation.Errors{"__all__": msgBadLogin}, data)
		}
		return h.fail(c, err, "/login")
	}

	token, err := h.jwt.GenerateAccessToken(domain.Claims{UserID: u.ID, Username: u.Username})
	if err != nil {
		return h.fail(c, err, "/login")
	}
	h.setToken(c, token)

	h.logger.Info("User logged in", "user_id", u.ID, "username", u.Username)
	return h.redirect(c, safeNext(c.Query("next"), "/"), LevelSuccess, msgLoggedIn)
}

// Logout handles POST /logout.
func (h *Handlers) Logout(c *fiber.Ctx) error {
	if u := currentUser(c); u != nil {
		h.logger.Info("User logged out", "user_id", u.ID, "username", u.Username)
	}
	h.clearToken(c)
	return h.redirect(c, "/", LevelInfo, msgLoggedOut)
}

func (h *Handlers) setToken(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     tokenCookie,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(h.jwt.AccessTokenDuration()),
		HTTPOnly: true,
		Secure:   h.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (h *Handlers) clearToken(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     tokenCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		Secure:   h.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
