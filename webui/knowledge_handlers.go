package webui

import (
	fiber "github.com/gofiber/fiber/v2"

	"github.com/maarifa-ai/maarifa/pkg/knowledge"
	"github.com/maarifa-ai/maarifa/pkg/xlog"
)

func (a *App) trainerUnconfigured(c *fiber.Ctx) error {
	return errorJSONMessage(c, fiber.StatusServiceUnavailable, "training service is not configured")
}

func (a *App) UploadDocument() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if a.deps.Trainer == nil {
			return a.trainerUnconfigured(c)
		}
		scope := c.Params("agentId")

		file, err := c.FormFile("file")
		if err != nil {
			return errorJSONMessage(c, fiber.StatusBadRequest, "file is required")
		}
		src, err := file.Open()
		if err != nil {
			return errorJSONMessage(c, fiber.StatusBadRequest, "could not read uploaded file")
		}
		defer src.Close()

		if err := a.deps.Trainer.Upload(c.Context(), scope, file.Filename, src); err != nil {
			xlog.Error("Document upload failed", "scope", scope, "file", file.Filename, "error", err)
			return errorJSONMessage(c, fiber.StatusBadGateway, "could not store document")
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"uploaded": file.Filename,
			"agentId":  scope,
		})
	}
}

func (a *App) SearchKnowledge() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if a.deps.Trainer == nil {
			return a.trainerUnconfigured(c)
		}
		scope := c.Params("agentId")

		var req knowledge.SearchRequest
		if err := c.BodyParser(&req); err != nil {
			return errorJSONMessage(c, fiber.StatusBadRequest, "invalid request body")
		}
		if req.Query == "" {
			return errorJSONMessage(c, fiber.StatusBadRequest, "query is required")
		}
		if req.Limit <= 0 {
			req.Limit = 5
		}

		chunks, err := a.deps.Trainer.Search(c.Context(), scope, req)
		if err != nil {
			return errorJSONMessage(c, fiber.StatusBadGateway, "knowledge search failed")
		}
		return c.JSON(fiber.Map{"chunks": chunks, "count": len(chunks)})
	}
}

func (a *App) ListDocuments() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if a.deps.Trainer == nil {
			return a.trainerUnconfigured(c)
		}
		docs, err := a.deps.Trainer.List(c.Context(), c.Params("agentId"))
		if err != nil {
			return errorJSONMessage(c, fiber.StatusBadGateway, "could not list documents")
		}
		return c.JSON(fiber.Map{"documents": docs, "count": len(docs)})
	}
}

func (a *App) KnowledgeStats() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if a.deps.Trainer == nil {
			return a.trainerUnconfigured(c)
		}
		stats, err := a.deps.Trainer.Stats(c.Context(), c.Params("agentId"))
		if err != nil {
			return errorJSONMessage(c, fiber.StatusBadGateway, "could not fetch stats")
		}
		return c.JSON(stats)
	}
}

func (a *App) DeleteDocument() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if a.deps.Trainer == nil {
			return a.trainerUnconfigured(c)
		}
		scope := c.Params("agentId")
		docID := c.Params("documentId")
		if err := a.deps.Trainer.Delete(c.Context(), scope, docID); err != nil {
			return errorJSONMessage(c, fiber.StatusBadGateway, "could not delete document")
		}
		return c.JSON(fiber.Map{"deleted": docID})
	}
}
