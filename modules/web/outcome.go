package web

import (
	"errors"

	"github.com/example/task-manager/domain/validation"
	"github.com/example/task-manager/modules/label"
	"github.com/example/task-manager/modules/status"
	"github.com/example/task-manager/modules/task"
	"github.com/example/task-manager/modules/user"
	"github.com/gofiber/fiber/v2"
)

func isNotFound(err error) bool {
	return errors.Is(err, user.ErrNotFound) ||
		errors.Is(err, status.ErrNotFound) ||
		errors.Is(err, label.ErrNotFound) ||
		errors.Is(err, task.ErrNotFound)
}

// failForm turns a failed form submission into a response: field errors
// re-render the form, a missing record is a 404 and anything else is logged
// and reported with a generic message on the list page.
func (h *Handlers) failForm(c *fiber.Ctx, err error, page string, form any, data fiber.Map, listURL string) error {
	if fe, ok := validation.AsErrors(err); ok {
		return h.renderForm(c, page, form, fe, data)
	}
	return h.fail(c, err, listURL)
}

// fail handles an error that has no form to re-render.
func (h *Handlers) fail(c *fiber.Ctx, err error, listURL string) error {
	if isNotFound(err) {
		return notFound(c)
	}
	h.logger.Error("Request failed", "method", c.Method(), "path", c.Path(), "error", err)
	return h.redirect(c, listURL, LevelError, msgUnexpected)
}
