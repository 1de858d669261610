package web

import (
	"github.com/gofiber/fiber/v2"
)

// render writes a page: its name, the consumed flash messages, the current
// user and data.
func (h *Handlers) render(c *fiber.Ctx, page string, data fiber.Map) error {
	body := fiber.Map{
		"page":     page,
		"messages": h.takeMessages(c),
	}
	if u := currentUser(c); u != nil {
		body["user"] = u
	}
	for k, v := range data {
		body[k] = v
	}
	return c.Status(fiber.StatusOK).JSON(body)
}

// renderForm re-renders a form with its field errors.
func (h *Handlers) renderForm(c *fiber.Ctx, page string, form any, errs map[string]string, data fiber.Map) error {
	body := fiber.Map{"form": form, "errors": errs}
	for k, v := range data {
		body[k] = v
	}
	return h.render(c, page, body)
}

// redirect flashes text at level and sends a 302 to location.
func (h *Handlers) redirect(c *fiber.Ctx, location, level, text string) error {
	if text != "" {
		h.flash(c, level, text)
	}
	return c.Redirect(location, fiber.StatusFound)
}

func notFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "not_found"})
}

// paramID returns the positive integer route parameter "id".
func paramID(c *fiber.Ctx) (uint, bool) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, false
	}
	return uint(id), true
}
