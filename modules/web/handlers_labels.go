package web

import (
	"errors"

	domain "github.com/example/task-manager/domain/label"
	"github.com/example/task-manager/modules/label"
	"github.com/gofiber/fiber/v2"
)

const labelsURL = "/labels"

// ListLabels handles GET /labels.
func (h *Handlers) ListLabels(c *fiber.Ctx) error {
	labels, err := h.svc.Labels.List(c.UserContext())
	if err != nil {
		return h.fail(c, err, "/")
	}
	return h.render(c, "labels/list", fiber.Map{"labels": labels})
}

// CreateLabelForm handles GET /labels/create.
func (h *Handlers) CreateLabelForm(c *fiber.Ctx) error {
	return h.render(c, "labels/create", fiber.Map{"form": domain.Input{}})
}

// CreateLabel handles POST /labels/create.
func (h *Handlers) CreateLabel(c *fiber.Ctx) error {
	var in domain.Input
	if err := c.BodyParser(&in); err != nil {
		return h.renderForm(c, "labels/create", in, unreadableForm(), nil)
	}
	if _, err := h.svc.Labels.Create(c.UserContext(), &in); err != nil {
		return h.failForm(c, err, "labels/create", in, nil, labelsURL)
	}
	return h.redirect(c, labelsURL, LevelSuccess, msgLabelCreated)
}

func (h *Handlers) loadLabel(c *fiber.Ctx) (*domain.Label, bool, error) {
	id, valid := paramID(c)
	if !valid {
		return nil, false, notFound(c)
	}
	l, err := h.svc.Labels.Get(c.UserContext(), id)
	if err != nil {
		return nil, false, h.fail(c, err, labelsURL)
	}
	return l, true, nil
}

// ShowLabel handles GET /labels/:id.
func (h *Handlers) ShowLabel(c *fiber.Ctx) error {
	l, ok, err := h.loadLabel(c)
	if !ok {
		return err
	}
	return h.render(c, "labels/detail", fiber.Map{"object": l})
}

// UpdateLabelForm handles GET /labels/:id/update.
func (h *Handlers) UpdateLabelForm(c *fiber.Ctx) error {
	l, ok, err := h.loadLabel(c)
	if !ok {
		return err
	}
	return h.render(c, "labels/update", fiber.Map{"object": l, "form": domain.Input{Name: l.Name}})
}

// UpdateLabel handles POST /labels/:id/update.
func (h *Handlers) UpdateLabel(c *fiber.Ctx) error {
	l, ok, err := h.loadLabel(c)
	if !ok {
		return err
	}

	var in domain.Input
	if err := c.BodyParser(&in); err != nil {
		return h.renderForm(c, "labels/update", in, unreadableForm(), fiber.Map{"object": l})
	}
	if _, err := h.svc.Labels.Update(c.UserContext(), l.ID, &in); err != nil {
		return h.failForm(c, err, "labels/update", in, fiber.Map{"object": l}, labelsURL)
	}
	return h.redirect(c, labelsURL, LevelSuccess, msgLabelChanged)
}

// DeleteLabelForm handles GET /labels/:id/delete.
func (h *Handlers) DeleteLabelForm(c *fiber.Ctx) error {
	l, ok, err := h.loadLabel(c)
	if !ok {
		return err
	}
	return h.render(c, "labels/delete", fiber.Map{"object": l})
}

// DeleteLabel handles POST /labels/:id/delete.
func (h *Handlers) DeleteLabel(c *fiber.Ctx) error {
	id, valid := paramID(c)
	if !valid {
		return notFound(c)
	}

	if err := h.svc.Labels.Delete(c.UserContext(), id); err != nil {
		if errors.Is(err, label.ErrInUse) {
			return h.redirect(c, labelsURL, LevelError, msgLabelInUse)
		}
		return h.fail(c, err, labelsURL)
	}
	return h.redirect(c, labelsURL, LevelSuccess, msgLabelDeleted)
}
