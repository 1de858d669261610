package web

import (
	"errors"

	"github.com/example/task-manager/domain/policy"
	domain "github.com/example/task-manager/domain/user"
	"github.com/example/task-manager/modules/user"
	"github.com/gofiber/fiber/v2"
)

const usersURL = "/users"

// userForm is the re-rendered part of a user form. Passwords are never echoed.
func userForm(firstName, lastName, username string) fiber.Map {
	return fiber.Map{"first_name": firstName, "last_name": lastName, "username": username}
}

// ListUsers handles GET /users.
func (h *Handlers) ListUsers(c *fiber.Ctx) error {
	users, err := h.svc.Users.List(c.UserContext())
	if err != nil {
		return h.fail(c, err, "/")
	}
	return h.render(c, "users/list", fiber.Map{"users": users})
}

// RegisterForm handles GET /users/create.
func (h *Handlers) RegisterForm(c *fiber.Ctx) error {
	return h.render(c, "users/create", fiber.Map{"form": userForm("", "", "")})
}

// Register handles POST /users/create.
func (h *Handlers) Register(c *fiber.Ctx) error {
	var in domain.RegisterInput
	if err := c.BodyParser(&in); err != nil {
		return h.renderForm(c, "users/create", userForm("", "", ""), unreadableForm(), nil)
	}

	if _, err := h.svc.Users.Register(c.UserContext(), &in); err != nil {
		return h.failForm(c, err, "users/create", userForm(in.FirstName, in.LastName, in.Username), nil, usersURL)
	}
	return h.redirect(c, "/login", LevelSuccess, msgUserRegistered)
}

// editableUser loads the :id user and checks that the actor may change it.
// When ok is false the response has been written and err must be returned.
func (h *Handlers) editableUser(c *fiber.Ctx) (target *domain.User, ok bool, err error) {
	id, valid := paramID(c)
	if !valid {
		return nil, false, notFound(c)
	}

	target, err = h.svc.Users.GetByID(c.UserContext(), id)
	if err != nil {
		return nil, false, h.fail(c, err, usersURL)
	}

	if !policy.CanModifyUser(actorOf(c), target.ID) {
		return nil, false, h.redirect(c, usersURL, LevelError, msgUserForbidden)
	}
	return target, true, nil
}

// UpdateUserForm handles GET /users/:id/update.
func (h *Handlers) UpdateUserForm(c *fiber.Ctx) error {
	target, ok, err := h.editableUser(c)
	if !ok {
		return err
	}
	return h.render(c, "users/update", fiber.Map{
		"object": target,
		"form":   userForm(target.FirstName, target.LastName, target.Username),
	})
}

// UpdateUser handles POST /users/:id/update.
func (h *Handlers) UpdateUser(c *fiber.Ctx) error {
	target, ok, err := h.editableUser(c)
	if !ok {
		return err
	}

	var in domain.UpdateInput
	if err := c.BodyParser(&in); err != nil {
		return h.renderForm(c, "users/update", userForm(target.FirstName, target.LastName, target.Username),
			unreadableForm(), fiber.Map{"object": target})
	}

	if _, err := h.svc.Users.Update(c.UserContext(), target.ID, &in); err != nil {
		return h.failForm(c, err, "users/update", userForm(in.FirstName, in.LastName, in.Username),
			fiber.Map{"object": target}, usersURL)
	}
	return h.redirect(c, usersURL, LevelSuccess, msgUserChanged)
}

// DeleteUserForm handles GET /users/:id/delete.
func (h *Handlers) DeleteUserForm(c *fiber.Ctx) error {
	target, ok, err := h.editableUser(c)
	if !ok {
		return err
	}
	return h.render(c, "users/delete", fiber.Map{"object": target})
}

// DeleteUser handles POST /users/:id/delete.
func (h *Handlers) DeleteUser(c *fiber.Ctx) error {
	target, ok, err := h.editableUser(c)
	if !ok {
		return err
	}

	if err := h.svc.Users.Delete(c.UserContext(), target.ID); err != nil {
		if errors.Is(err, user.ErrInUse) {
			return h.redirect(c, usersURL, LevelError, msgUserInUse)
		}
		return h.fail(c, err, usersURL)
	}

	if actorOf(c).ID == target.ID {
		h.clearToken(c)
	}
	return h.redirect(c, usersURL, LevelSuccess, msgUserDeleted)
}
