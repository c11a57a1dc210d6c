package routes

import (
	"contentflow/internal/config"
	"contentflow/internal/handlers"
	"contentflow/internal/middleware"
	"github.com/gofiber/fiber/v2"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	aiHandler *handlers.AIHandler,
	conversationHandler *handlers.ConversationHandler,
	invitationHandler *handlers.InvitationHandler,
	requestHandler *handlers.RequestHandler,
	analyticsHandler *handlers.AnalyticsHandler,
	systemHandler *handlers.SystemHandler,
) {
	// ─── Public ──────────────────────────────────────────────────────────
	app.Get("/api/health", systemHandler.Health)
	app.Post("/api/auth/login", authHandler.Login)
	app.Post("/api/auth/refresh", authHandler.Refresh)
	app.Post("/api/auth/accept-invitation", authHandler.AcceptInvitation)

	// ─── Protected routes ────────────────────────────────────────────────
	api := app.Group("/api", middleware.JWTProtected(cfg.JWTSecret))

	// Auth (protected)
	api.Get("/auth/me", authHandler.Me)
	api.Put("/auth/password", authHandler.ChangePassword)

	// Dashboard
	api.Get("/dashboard/overview", systemHandler.DashboardOverview)

	// AI rewriter
	ai := api.Group("/ai")
	ai.Post("/rewrite-chat", aiHandler.RewriteChat)
	ai.Get("/conversations", conversationHandler.ListConversations)
	ai.Post("/conversations", conversationHandler.CreateConversation)
	ai.Get("/conversations/:id", conversationHandler.GetConversation)
	ai.Put("/conversations/:id/document", conversationHandler.AttachDocument)
	ai.Delete("/conversations/:id", conversationHandler.DeleteConversation)

	// Content requests
	api.Post("/requests", requestHandler.CreateRequest)
	api.Get("/requests", requestHandler.ListRequests)
	api.Get("/requests/:id", requestHandler.GetRequest)

	// ─── Admin ───────────────────────────────────────────────────────────
	admin := api.Group("", middleware.RequireRole("admin"))
	admin.Get("/invitations", invitationHandler.ListInvitations)
	admin.Post("/invitations", invitationHandler.CreateInvitation)
	admin.Get("/invitations/stats", invitationHandler.InvitationStats)
	admin.Delete("/invitations/:id", invitationHandler.RevokeInvitation)
	admin.Put("/requests/:id/status", requestHandler.UpdateRequestStatus)
	admin.Get("/analytics/overview", analyticsHandler.Overview)
}
