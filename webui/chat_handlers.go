package webui

import (
	"errors"
	"fmt"
	"time"

	fiber "github.com/gofiber/fiber/v2"

	models "github.com/maarifa-ai/maarifa/dbmodels"
	"github.com/maarifa-ai/maarifa/services/access"
	"github.com/maarifa-ai/maarifa/services/chat"
	"github.com/maarifa-ai/maarifa/services/chathistory"
	"github.com/maarifa-ai/maarifa/services/payments"
)

type chatRequest struct {
	AgentID             string        `json:"agentId"`
	Message             string        `json:"message"`
	UserID              string        `json:"userId"`
	ConversationHistory []historyTurn `json:"conversationHistory"`
}

type historyTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (a *App) Chat() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var payload chatRequest
		if err := c.BodyParser(&payload); err != nil {
			return errorJSONMessage(c, fiber.StatusBadRequest, "invalid request body")
		}
		if payload.Message == "" {
			return errorJSONMessage(c, fiber.StatusBadRequest, "message is required")
		}
		if len(payload.Message) > maxMessageLength {
			return errorJSONMessage(c, fiber.StatusBadRequest,
				fmt.Sprintf("message exceeds the %d character limit", maxMessageLength))
		}
		agent, err := models.ParseAgentID(payload.AgentID)
		if err != nil {
			return errorJSONMessage(c, fiber.StatusBadRequest, err.Error())
		}

		if payload.UserID != "" {
			decision := a.deps.Access.Check(c.Context(), payload.UserID, agent)
			if decision.Kind == access.PaymentRequired {
				return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
					"success": false,
					"error":   "payment required",
					"message": fmt.Sprintf("Access to %s costs %s.", decision.Pricing.Name, decision.Pricing.Formatted()),
					"pricing": fiber.Map{
						"role":     decision.Pricing.Role,
						"amount":   decision.Pricing.Amount,
						"currency": decision.Pricing.Currency,
						"name":     decision.Pricing.Name,
					},
					"paymentUrl": a.paymentURL(c, payload.UserID, agent),
					"timestamp":  time.Now(),
				})
			}
		}

		var provided []chathistory.Turn
		for _, t := range payload.ConversationHistory {
			role := models.MessageRoleUser
			if t.Role == "assistant" {
				role = models.MessageRoleAssistant
			}
			provided = append(provided, chathistory.Turn{Role: role, Content: t.Content})
		}

		resp, err := a.deps.Orchestrator.Handle(c.Context(), agent, payload.Message, payload.UserID, provided)
		if errors.Is(err, chat.ErrAgentNotFound) {
			return errorJSONMessage(c, fiber.StatusNotFound, "agent not found")
		}
		return c.JSON(resp)
	}
}

// paymentURL prefers the collect page of an open pending payment over
// the create endpoint.
func (a *App) paymentURL(c *fiber.Ctx, userID string, agent models.AgentID) string {
	if rec, err := a.deps.PaymentStore.LatestPayment(c.Context(), userID, agent); err == nil &&
		rec.Status == models.PaymentPending && rec.CollectURL != "" {
		return rec.CollectURL
	} else if err != nil && !errors.Is(err, payments.ErrNotFound) {
		return fmt.Sprintf("/agents/%s/payment/create", agent.String())
	}
	return fmt.Sprintf("/agents/%s/payment/create", agent.String())
}
