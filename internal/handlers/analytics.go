package handlers

import (
	"contentflow/internal/models"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type AnalyticsHandler struct {
	db *gorm.DB
}

func NewAnalyticsHandler(db *gorm.DB) *AnalyticsHandler {
	return &AnalyticsHandler{db: db}
}

func (h *AnalyticsHandler) Overview(c *fiber.Ctx) error {
	var users, conversations, messages, requests, invitations int64
	h.db.Model(&models.User{}).Count(&users)
	h.db.Model(&models.Conversation{}).Count(&conversations)
	h.db.Model(&models.Message{}).Count(&messages)
	h.db.Model(&models.ContentRequest{}).Count(&requests)
	h.db.Model(&models.Invitation{}).Count(&invitations)

	type statusCount struct {
		Status string `json:"status"`
		Count  int64  `json:"count"`
	}
	var byStatus []statusCount
	h.db.Model(&models.ContentRequest{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&byStatus)

	return c.JSON(fiber.Map{
		"users":              users,
		"conversations":      conversations,
		"messages":           messages,
		"requests":           requests,
		"invitations":        invitations,
		"requests_by_status": byStatus,
	})
}
