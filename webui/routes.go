package webui

import (
	fiber "github.com/gofiber/fiber/v2"
)

func (a *App) registerRoutes(webapp *fiber.App) {
	webapp.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// payment gate
	webapp.Post("/agents/:agentId/payment/create", a.CreatePayment())
	webapp.Get("/agents/:agentId/payment/status", a.PaymentStatus())
	webapp.Get("/payments/webhook/success", a.PaymentSuccessWebhook())
	webapp.Get("/payments/webhook/failure", a.PaymentFailureWebhook())
	webapp.Post("/payments/verify", a.VerifyPayment())
	webapp.Get("/api/payments/balance", a.PaymentBalance())

	// chat
	webapp.Post("/chat", a.Chat())

	// knowledge / training, scoped per agent
	webapp.Post("/agents/:agentId/knowledge/documents", a.UploadDocument())
	webapp.Get("/agents/:agentId/knowledge/documents", a.ListDocuments())
	webapp.Post("/agents/:agentId/knowledge/search", a.SearchKnowledge())
	webapp.Get("/agents/:agentId/knowledge/stats", a.KnowledgeStats())
	webapp.Delete("/agents/:agentId/knowledge/documents/:documentId", a.DeleteDocument())

	// agent management
	webapp.Post("/api/agents", a.CreateAgent())
	webapp.Get("/api/agents", a.ListAgents())
	webapp.Get("/api/agents/:agentId", a.GetAgent())
}
