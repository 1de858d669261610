package web

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
)

// flashKey is the session key holding the queued messages as a JSON list.
const flashKey = "messages"

// flash queues a message for the next rendered page.
func (h *Handlers) flash(c *fiber.Ctx, level, text string) {
	sess, err := h.sessions.Get(c)
	if err != nil {
		h.logger.Error("Failed to load session", "path", c.Path(), "error", err)
		return
	}

	msgs := decodeMessages(sess.Get(flashKey))
	msgs = append(msgs, Message{Level: level, Text: text})

	raw, err := json.Marshal(msgs)
	if err != nil {
		h.logger.Error("Failed to encode flash messages", "error", err)
		return
	}
	sess.Set(flashKey, string(raw))
	if err := sess.Save(); err != nil {
		h.logger.Error("Failed to save session", "path", c.Path(), "error", err)
	}
}

// takeMessages returns the queued messages and clears them.
func (h *Handlers) takeMessages(c *fiber.Ctx) []Message {
	sess, err := h.sessions.Get(c)
	if err != nil {
		h.logger.Error("Failed to load session", "path", c.Path(), "error", err)
		return []Message{}
	}

	msgs := decodeMessages(sess.Get(flashKey))
	if len(msgs) == 0 {
		return msgs
	}

	sess.Delete(flashKey)
	if err := sess.Save(); err != nil {
		h.logger.Error("Failed to save session", "path", c.Path(), "error", err)
	}
	return msgs
}

func decodeMessages(v any) []Message {
	msgs := []Message{}
	raw, ok := v.(string)
	if !ok || raw == "" {
		return msgs
	}
	if err := json.Unmarshal([]byte(raw), &msgs); err != nil {
		return []Message{}
	}
	return msgs
}
