package handlers

import (
	"time"

	"contentflow/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const Version = "1.2.0"

type SystemHandler struct {
	db *gorm.DB
}

func NewSystemHandler(db *gorm.DB) *SystemHandler {
	return &SystemHandler{db: db}
}

func (h *SystemHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"version": Version,
		"time":    time.Now().UTC(),
	})
}

// DashboardOverview returns the caller-scoped counts shown on the landing
// screen.
func (h *SystemHandler) DashboardOverview(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(uuid.UUID)

	var conversations, requests, pendingRequests int64
	h.db.Model(&models.Conversation{}).Where("user_id = ?", userID).Count(&conversations)
	h.db.Model(&models.ContentRequest{}).Where("user_id = ?", userID).Count(&requests)
	h.db.Model(&models.ContentRequest{}).
		Where("user_id = ? AND status = ?", userID, models.RequestPending).
		Count(&pendingRequests)

	return c.JSON(fiber.Map{
		"conversations":    conversations,
		"requests":         requests,
		"pending_requests": pendingRequests,
	})
}
