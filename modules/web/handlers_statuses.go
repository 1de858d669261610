package web

import (
	"errors"

	domain "github.com/example/task-manager/domain/status"
	"github.com/example/task-manager/modules/status"
	"github.com/gofiber/fiber/v2"
)

const statusesURL = "/statuses"

// ListStatuses handles GET /statuses.
func (h *Handlers) ListStatuses(c *fiber.Ctx) error {
	statuses, err := h.svc.Statuses.List(c.UserContext())
	if err != nil {
		return h.fail(c, err, "/")
	}
	return h.render(c, "statuses/list", fiber.Map{"statuses": statuses})
}

// CreateStatusForm handles GET /statuses/create.
func (h *Handlers) CreateStatusForm(c *fiber.Ctx) error {
	return h.render(c, "statuses/create", fiber.Map{"form": domain.Input{}})
}

// CreateStatus handles POST /statuses/create.
func (h *Handlers) CreateStatus(c *fiber.Ctx) error {
	var in domain.Input
	if err := c.BodyParser(&in); err != nil {
		return h.renderForm(c, "statuses/create", in, unreadableForm(), nil)
	}
	if _, err := h.svc.Statuses.Create(c.UserContext(), &in); err != nil {
		return h.failForm(c, err, "statuses/create", in, nil, statusesURL)
	}
	return h.redirect(c, statusesURL, LevelSuccess, msgStatusCreated)
}

func (h *Handlers) loadStatus(c *fiber.Ctx) (*domain.Status, bool, error) {
	id, valid := paramID(c)
	if !valid {
		return nil, false, notFound(c)
	}
	s, err := h.svc.Statuses.Get(c.UserContext(), id)
	if err != nil {
		return nil, false, h.fail(c, err, statusesURL)
	}
	return s, true, nil
}

// UpdateStatusForm handles GET /statuses/:id/update.
func (h *Handlers) UpdateStatusForm(c *fiber.Ctx) error {
	s, ok, err := h.loadStatus(c)
	if !ok {
		return err
	}
	return h.render(c, "statuses/update", fiber.Map{"object": s, "form": domain.Input{Name: s.Name}})
}

// UpdateStatus handles POST /statuses/:id/update.
func (h *Handlers) UpdateStatus(c *fiber.Ctx) error {
	s, ok, err := h.loadStatus(c)
	if !ok {
		return err
	}

	var in domain.Input
	if err := c.BodyParser(&in); err != nil {
		return h.renderForm(c, "statuses/update", in, unreadableForm(), fiber.Map{"object": s})
	}
	if _, err := h.svc.Statuses.Update(c.UserContext(), s.ID, &in); err != nil {
		return h.failForm(c, err, "statuses/update", in, fiber.Map{"object": s}, statusesURL)
	}
	return h.redirect(c, statusesURL, LevelSuccess, msgStatusChanged)
}

// DeleteStatusForm handles GET /statuses/:id/delete.
func (h *Handlers) DeleteStatusForm(c *fiber.Ctx) error {
	s, ok, err := h.loadStatus(c)
	if !ok {
		return err
	}
	return h.render(c, "statuses/delete", fiber.Map{"object": s})
}

// DeleteStatus handles POST /statuses/:id/delete.
func (h *Handlers) DeleteStatus(c *fiber.Ctx) error {
	id, valid := paramID(c)
	if !valid {
		return notFound(c)
	}

	if err := h.svc.Statuses.Delete(c.UserContext(), id); err != nil {
		if errors.Is(err, status.ErrInUse) {
			return h.redirect(c, statusesURL, LevelError, msgStatusInUse)
		}
		return h.fail(c, err, statusesURL)
	}
	return h.redirect(c, statusesURL, LevelSuccess, msgStatusDeleted)
}
