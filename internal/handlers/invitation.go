package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"contentflow/internal/config"
	"contentflow/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const invitationTTL = 7 * 24 * time.Hour

type InvitationHandler struct {
	cfg    *config.Config
	db     *gorm.DB
	client *http.Client
}

func NewInvitationHandler(cfg *config.Config, db *gorm.DB) *InvitationHandler {
	return &InvitationHandler{
		cfg: cfg,
		db:  db,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (h *InvitationHandler) ListInvitations(c *fiber.Ctx) error {
	var invs []models.Invitation
	if err := h.db.Order("created_at DESC").Find(&invs).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load invitations",
		})
	}
	return c.JSON(fiber.Map{"invitations": invs})
}

func (h *InvitationHandler) CreateInvitation(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		FullName string `json:"full_name"`
		Role     string `json:"role"`
	}
	if err := c.BodyParser(&req); err != nil || req.Email == "" || req.FullName == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "email and full_name are required",
		})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if !strings.Contains(req.Email, "@") {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid email address",
		})
	}
	if req.Role == "" {
		req.Role = "user"
	}
	if req.Role != "user" && req.Role != "admin" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Role must be user or admin",
		})
	}

	var existing int64
	h.db.Model(&models.Invitation{}).
		Where("email = ? AND status = ?", req.Email, models.InvitationPending).
		Count(&existing)
	if existing > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "A pending invitation already exists for this email",
		})
	}

	invitedBy, _ := c.Locals("user_id").(uuid.UUID)
	inv := models.Invitation{
		Email:     req.Email,
		FullName:  req.FullName,
		Role:      req.Role,
		Status:    models.InvitationPending,
		Token:     uuid.NewString(),
		InvitedBy: invitedBy,
		ExpiresAt: time.Now().Add(invitationTTL),
	}
	if err := h.db.Create(&inv).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create invitation",
		})
	}

	// Best-effort: a failed email never voids the invitation.
	if err := h.sendInvitationEmail(&inv); err != nil {
		slog.Error("Invitation email failed", "email", inv.Email, "error", err)
	}

	return c.Status(fiber.StatusCreated).JSON(inv)
}

func (h *InvitationHandler) RevokeInvitation(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid invitation ID",
		})
	}

	var inv models.Invitation
	if err := h.db.First(&inv, "id = ?", id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Invitation not found",
		})
	}
	if inv.Status != models.InvitationPending {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Only pending invitations can be revoked",
		})
	}

	if err := h.db.Model(&inv).Update("status", models.InvitationRevoked).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to revoke invitation",
		})
	}

	return c.JSON(fiber.Map{"message": "Invitation revoked"})
}

func (h *InvitationHandler) InvitationStats(c *fiber.Ctx) error {
	var total, pending, accepted, expired int64
	h.db.Model(&models.Invitation{}).Count(&total)
	h.db.Model(&models.Invitation{}).Where("status = ? AND expires_at >= ?", models.InvitationPending, time.Now()).Count(&pending)
	h.db.Model(&models.Invitation{}).Where("status = ?", models.InvitationAccepted).Count(&accepted)
	h.db.Model(&models.Invitation{}).Where("status = ? AND expires_at < ?", models.InvitationPending, time.Now()).Count(&expired)

	return c.JSON(fiber.Map{
		"total":    total,
		"pending":  pending,
		"accepted": accepted,
		"expired":  expired,
	})
}

// sendInvitationEmail hands the invitation off to the configured automation
// webhook, which owns rendering and delivery.
func (h *InvitationHandler) sendInvitationEmail(inv *models.Invitation) error {
	if h.cfg.InviteWebhookURL == "" {
		return nil
	}

	payload, _ := json.Marshal(map[string]string{
		"email":    inv.Email,
		"fullName": inv.FullName,
		"role":     inv.Role,
		"token":    inv.Token,
		"appUrl":   h.cfg.AppURL,
	})

	req, err := http.NewRequest(http.MethodPost, h.cfg.InviteWebhookURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
