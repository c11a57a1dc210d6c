package handlers

import (
	"encoding/json"

	"contentflow/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type RequestHandler struct {
	db *gorm.DB
}

func NewRequestHandler(db *gorm.DB) *RequestHandler {
	return &RequestHandler{db: db}
}

func (h *RequestHandler) CreateRequest(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(uuid.UUID)

	var req struct {
		Title  string                 `json:"title"`
		Type   string                 `json:"type"`
		Fields map[string]interface{} `json:"fields"`
	}
	if err := c.BodyParser(&req); err != nil || req.Title == "" || req.Type == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "title and type are required",
		})
	}

	fields := datatypes.JSON("{}")
	if req.Fields != nil {
		raw, err := json.Marshal(req.Fields)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid fields payload",
			})
		}
		fields = datatypes.JSON(raw)
	}

	request := models.ContentRequest{
		UserID: userID,
		Title:  truncate(req.Title, 200),
		Type:   req.Type,
		Status: models.RequestPending,
		Fields: fields,
	}
	if err := h.db.Create(&request).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create request",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(request)
}

// ListRequests returns the caller's requests; admins can pass ?all=true to
// see everyone's.
func (h *RequestHandler) ListRequests(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(uuid.UUID)
	role, _ := c.Locals("role").(string)

	q := h.db.Order("created_at DESC")
	if !(role == "admin" && c.Query("all") == "true") {
		q = q.Where("user_id = ?", userID)
	}

	var requests []models.ContentRequest
	if err := q.Find(&requests).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load requests",
		})
	}

	return c.JSON(fiber.Map{"requests": requests})
}

func (h *RequestHandler) GetRequest(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(uuid.UUID)
	role, _ := c.Locals("role").(string)

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request ID",
		})
	}

	var request models.ContentRequest
	if err := h.db.First(&request, "id = ?", id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Request not found",
		})
	}
	if request.UserID != userID && role != "admin" {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Request not found",
		})
	}

	return c.JSON(request)
}

func (h *RequestHandler) UpdateRequestStatus(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request ID",
		})
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil || !models.ValidRequestStatus(req.Status) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Status must be one of pending, in_progress, done, rejected",
		})
	}

	var request models.ContentRequest
	if err := h.db.First(&request, "id = ?", id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Request not found",
		})
	}

	if err := h.db.Model(&request).Update("status", req.Status).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update request",
		})
	}

	return c.JSON(request)
}
