package web

import (
	"encoding/json"
	"strconv"

	"github.com/example/task-manager/domain/validation"
	"github.com/gofiber/fiber/v2"
)

// taskChoiceFields are the selects of the task form. Their values are record ids.
var taskChoiceFields = []string{"status", "executor", "labels"}

// unreadableForm reports a body that could not be decoded.
func unreadableForm() validation.Errors {
	return validation.Errors{"__all__": msgInvalidForm}
}

// unreadableChoiceForm explains a failed bind of a form with select fields:
// each select holding something other than an id gets its own error. Bodies
// that are broken in any other way fall back to unreadableForm.
func unreadableChoiceForm(c *fiber.Ctx, fields ...string) validation.Errors {
	if fe := invalidChoices(c, fields...); len(fe) > 0 {
		return fe
	}
	return unreadableForm()
}

// invalidChoices returns the fields whose submitted values are not ids.
// An empty form value or a JSON null selects nothing and is accepted.
func invalidChoices(c *fiber.Ctx, fields ...string) validation.Errors {
	fe := validation.Errors{}

	if c.Is("json") {
		var body map[string]json.RawMessage
		if err := json.Unmarshal(c.Body(), &body); err != nil {
			return fe
		}
		for _, field := range fields {
			raw, ok := body[field]
			if !ok || string(raw) == "null" {
				continue
			}
			if !isJSONID(raw) {
				fe.Add(field, validation.InvalidChoice)
			}
		}
		return fe
	}

	args := c.Request().PostArgs()
	for _, field := range fields {
		for _, v := range args.PeekMulti(field) {
			if len(v) == 0 {
				continue
			}
			if _, err := strconv.ParseUint(string(v), 10, 64); err != nil {
				fe.Add(field, validation.InvalidChoice)
			}
		}
	}
	return fe
}

// isJSONID reports whether raw is an id or a list of ids.
func isJSONID(raw json.RawMessage) bool {
	var id uint
	if err := json.Unmarshal(raw, &id); err == nil {
		return true
	}
	var ids []uint
	return json.Unmarshal(raw, &ids) == nil
}
