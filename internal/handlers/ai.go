package handlers

import (
	"bufio"
	"log/slog"

	"contentflow/internal/ai"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// AIHandler exposes the rewrite-chat relay over HTTP. All control flow lives
// in the ai package; this layer only parses the request and commits the
// response to event-stream framing.
type AIHandler struct {
	relay *ai.Relay
}

func NewAIHandler(relay *ai.Relay) *AIHandler {
	return &AIHandler{relay: relay}
}

func (h *AIHandler) RewriteChat(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(uuid.UUID)

	var req ai.Request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Missing conversationId or message",
		})
	}

	sess, relayErr := h.relay.Prepare(c.Context(), userID, req)
	if relayErr != nil {
		resp := fiber.Map{"error": relayErr.Message}
		if relayErr.Details != "" {
			resp["details"] = relayErr.Details
		}
		return c.Status(relayErr.Status).JSON(resp)
	}

	// The response is committed to SSE from here on; later failures can only
	// close the stream, never change the status code.
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	ctx := c.Context()
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		if err := sess.Run(ctx, w); err != nil {
			slog.Error("AI stream aborted", "error", err)
		}
	})

	return nil
}
