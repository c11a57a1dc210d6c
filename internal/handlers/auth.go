package handlers

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"contentflow/internal/config"
	"contentflow/internal/middleware"
	"contentflow/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthHandler struct {
	cfg *config.Config
	db  *gorm.DB
}

func NewAuthHandler(cfg *config.Config, db *gorm.DB) *AuthHandler {
	return &AuthHandler{cfg: cfg, db: db}
}

// EnsureAdmin seeds the first admin account from the environment when the
// users table is empty.
func EnsureAdmin(db *gorm.DB, cfg *config.Config) error {
	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 || cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	admin := models.User{
		Email:        strings.ToLower(cfg.AdminEmail),
		FullName:     cfg.AdminName,
		Role:         "admin",
		PasswordHash: string(hash),
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}
	slog.Info("Seeded admin user", "email", cfg.AdminEmail)
	return nil
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil || req.Email == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Email and password are required",
		})
	}

	var user models.User
	err := h.db.First(&user, "email = ?", strings.ToLower(req.Email)).Error
	if err != nil {
		// Same answer as a wrong password; never reveal which one it was.
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid credentials",
		})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid credentials",
		})
	}

	access, refresh, err := middleware.GenerateTokens(user.ID, user.Email, user.FullName, user.Role, h.cfg.JWTSecret)
	if err != nil {
		slog.Error("Failed to generate tokens", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to generate tokens",
		})
	}

	return c.JSON(fiber.Map{
		"access_token":  access,
		"refresh_token": refresh,
		"user":          userPayload(&user),
	})
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	claims := &middleware.Claims{}
	token, err := jwt.ParseWithClaims(req.RefreshToken, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(h.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid or expired refresh token",
		})
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid token subject",
		})
	}

	// Re-read the user so role changes take effect on refresh.
	var user models.User
	if err := h.db.First(&user, "id = ?", userID).Error; err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unknown user",
		})
	}

	access, refresh, err := middleware.GenerateTokens(user.ID, user.Email, user.FullName, user.Role, h.cfg.JWTSecret)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to generate tokens",
		})
	}

	return c.JSON(fiber.Map{
		"access_token":  access,
		"refresh_token": refresh,
		"user":          userPayload(&user),
	})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(uuid.UUID)

	var user models.User
	if err := h.db.First(&user, "id = ?", userID).Error; err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unknown user",
		})
	}
	return c.JSON(userPayload(&user))
}

func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	var req struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	if err := c.BodyParser(&req); err != nil || req.OldPassword == "" || req.NewPassword == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Both old_password and new_password are required",
		})
	}
	if len(req.NewPassword) < 8 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "New password must be at least 8 characters",
		})
	}

	userID, _ := c.Locals("user_id").(uuid.UUID)
	var user models.User
	if err := h.db.First(&user, "id = ?", userID).Error; err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unknown user",
		})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.OldPassword)); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Current password is incorrect",
		})
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("Failed to hash new password", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update password",
		})
	}

	if err := h.db.Model(&user).Update("password_hash", string(newHash)).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update password",
		})
	}

	return c.JSON(fiber.Map{"message": "Password changed successfully"})
}

// AcceptInvitation is public: it turns a pending invitation token into a new
// account and logs the user in. A token works exactly once.
func (h *AuthHandler) AcceptInvitation(c *fiber.Ctx) error {
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil || req.Token == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Token and password are required",
		})
	}
	if len(req.Password) < 8 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Password must be at least 8 characters",
		})
	}

	var inv models.Invitation
	if err := h.db.First(&inv, "token = ?", req.Token).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Invitation not found",
		})
	}
	if inv.Status != models.InvitationPending {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invitation is no longer valid",
		})
	}
	if inv.Expired() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invitation has expired",
		})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create account",
		})
	}

	user := models.User{
		Email:        strings.ToLower(inv.Email),
		FullName:     inv.FullName,
		Role:         inv.Role,
		PasswordHash: string(hash),
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		var existing models.User
		if err := tx.First(&existing, "email = ?", user.Email).Error; err == nil {
			return errAccountExists
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		now := time.Now()
		return tx.Model(&inv).Updates(map[string]interface{}{
			"status":      models.InvitationAccepted,
			"accepted_at": &now,
		}).Error
	})
	if errors.Is(err, errAccountExists) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "An account with this email already exists",
		})
	}
	if err != nil {
		slog.Error("Invitation acceptance failed", "invitation_id", inv.ID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create account",
		})
	}

	access, refresh, err := middleware.GenerateTokens(user.ID, user.Email, user.FullName, user.Role, h.cfg.JWTSecret)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to generate tokens",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"access_token":  access,
		"refresh_token": refresh,
		"user":          userPayload(&user),
	})
}

var errAccountExists = errors.New("account already exists")

func userPayload(u *models.User) fiber.Map {
	return fiber.Map{
		"id":              u.ID,
		"email":           u.Email,
		"full_name":       u.FullName,
		"role":            u.Role,
		"avatar_initials": buildInitials(u.FullName),
	}
}

// buildInitials extracts uppercase initials from a display name.
// e.g. "Jane Doe" -> "JD", "Jane" -> "J"
func buildInitials(name string) string {
	if name == "" {
		return "?"
	}
	parts := strings.Fields(name)
	initials := ""
	for _, p := range parts {
		if len(p) > 0 {
			initials += strings.ToUpper(p[:1])
		}
	}
	if len(initials) > 2 {
		initials = initials[:2]
	}
	return initials
}
