package handlers

import (
	"time"

	"contentflow/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ConversationHandler struct {
	db *gorm.DB
}

func NewConversationHandler(db *gorm.DB) *ConversationHandler {
	return &ConversationHandler{db: db}
}

// ListConversations returns the caller's conversations without message
// bodies, newest first.
func (h *ConversationHandler) ListConversations(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(uuid.UUID)

	var convs []models.Conversation
	if err := h.db.Where("user_id = ?", userID).Order("updated_at DESC").Find(&convs).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load conversations",
		})
	}

	type convSummary struct {
		ID           uuid.UUID `json:"id"`
		Title        string    `json:"title"`
		DocumentName string    `json:"document_name,omitempty"`
		CreatedAt    time.Time `json:"created_at"`
		UpdatedAt    time.Time `json:"updated_at"`
	}
	summaries := make([]convSummary, len(convs))
	for i, conv := range convs {
		summaries[i] = convSummary{
			ID:           conv.ID,
			Title:        conv.Title,
			DocumentName: conv.DocumentName,
			CreatedAt:    conv.CreatedAt,
			UpdatedAt:    conv.UpdatedAt,
		}
	}

	return c.JSON(fiber.Map{"conversations": summaries})
}

func (h *ConversationHandler) CreateConversation(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(uuid.UUID)

	var req struct {
		Title string `json:"title"`
	}
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Title == "" {
		req.Title = "New Conversation - " + time.Now().Format("2006-01-02")
	}

	conv := models.Conversation{
		UserID: userID,
		Title:  truncate(req.Title, 200),
	}
	if err := h.db.Create(&conv).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create conversation",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(conv)
}

func (h *ConversationHandler) GetConversation(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(uuid.UUID)

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid conversation ID",
		})
	}

	var conv models.Conversation
	if err := h.db.First(&conv, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Conversation not found",
		})
	}

	var messages []models.Message
	if err := h.db.Where("conversation_id = ?", id).Order("created_at ASC").Find(&messages).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load messages",
		})
	}

	return c.JSON(fiber.Map{
		"id":               conv.ID,
		"title":            conv.Title,
		"document_name":    conv.DocumentName,
		"document_content": conv.DocumentContent,
		"messages":         messages,
		"created_at":       conv.CreatedAt,
		"updated_at":       conv.UpdatedAt,
	})
}

// AttachDocument stores parsed document text on a conversation. Parsing
// happens client-side; the server only keeps the text for prompt context.
func (h *ConversationHandler) AttachDocument(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(uuid.UUID)

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid conversation ID",
		})
	}

	var req struct {
		DocumentName    string `json:"document_name"`
		DocumentContent string `json:"document_content"`
	}
	if err := c.BodyParser(&req); err != nil || req.DocumentName == "" || req.DocumentContent == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "document_name and document_content are required",
		})
	}

	var conv models.Conversation
	if err := h.db.First(&conv, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Conversation not found",
		})
	}

	updates := map[string]interface{}{
		"document_name":    req.DocumentName,
		"document_content": req.DocumentContent,
	}
	if err := h.db.Model(&conv).Updates(updates).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to attach document",
		})
	}

	return c.JSON(fiber.Map{"message": "Document attached"})
}

func (h *ConversationHandler) DeleteConversation(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(uuid.UUID)

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid conversation ID",
		})
	}

	res := h.db.Where("id = ? AND user_id = ?", id, userID).Delete(&models.Conversation{})
	if res.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete conversation",
		})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Conversation not found",
		})
	}

	return c.JSON(fiber.Map{"message": "Conversation deleted"})
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
