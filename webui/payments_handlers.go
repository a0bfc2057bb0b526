package webui

import (
	"errors"

	fiber "github.com/gofiber/fiber/v2"
	"github.com/spf13/cast"

	models "github.com/maarifa-ai/maarifa/dbmodels"
	"github.com/maarifa-ai/maarifa/pkg/whish"
	"github.com/maarifa-ai/maarifa/pkg/xlog"
	"github.com/maarifa-ai/maarifa/services/access"
	"github.com/maarifa-ai/maarifa/services/payments"
)

func (a *App) CreatePayment() fiber.Handler {
	return func(c *fiber.Ctx) error {
		agent, err := models.ParseAgentID(c.Params("agentId"))
		if err != nil {
			return errorJSONMessage(c, fiber.StatusBadRequest, err.Error())
		}

		payload := struct {
			UserID             string `json:"userId"`
			SuccessRedirectURL string `json:"successRedirectUrl"`
			FailureRedirectURL string `json:"failureRedirectUrl"`
		}{}
		if err := c.BodyParser(&payload); err != nil {
			return errorJSONMessage(c, fiber.StatusBadRequest, "invalid request body")
		}
		if payload.UserID == "" {
			return errorJSONMessage(c, fiber.StatusBadRequest, "userId is required")
		}

		result, err := a.deps.Payments.Create(c.Context(), payload.UserID, agent,
			payload.SuccessRedirectURL, payload.FailureRedirectURL)
		switch {
		case errors.Is(err, access.ErrAgentNotFound):
			return errorJSONMessage(c, fiber.StatusNotFound, "agent not found")
		case errors.Is(err, payments.ErrAgentFree):
			return errorJSONMessage(c, fiber.StatusBadRequest, "agent does not require payment")
		case errors.Is(err, payments.ErrAlreadyPaid):
			return errorJSONMessage(c, fiber.StatusBadRequest, "user already has access to this agent")
		case errors.Is(err, whish.ErrInvalidRequest):
			return errorJSONMessage(c, fiber.StatusBadRequest, err.Error())
		case errors.Is(err, whish.ErrGatewayUnavailable):
			return errorJSONMessage(c, fiber.StatusBadGateway, "payment gateway unavailable")
		case err != nil:
			xlog.Error("Payment creation failed", "agent", agent.String(), "error", err)
			return errorJSONMessage(c, fiber.StatusInternalServerError, "could not create payment")
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"paymentId":      result.Record.ID,
			"collectUrl":     result.CollectURL,
			"amount":         result.Record.Amount,
			"currency":       result.Record.Currency,
			"formattedPrice": result.FormattedPrice,
			"agentName":      result.AgentName,
		})
	}
}

func (a *App) PaymentStatus() fiber.Handler {
	return func(c *fiber.Ctx) error {
		agent, err := models.ParseAgentID(c.Params("agentId"))
		if err != nil {
			return errorJSONMessage(c, fiber.StatusBadRequest, err.Error())
		}
		userID := c.Query("userId")
		if userID == "" {
			return errorJSONMessage(c, fiber.StatusBadRequest, "userId is required")
		}

		decision := a.deps.Access.Check(c.Context(), userID, agent)

		var pricing fiber.Map
		if decision.Pricing != nil {
			pricing = fiber.Map{
				"role":     decision.Pricing.Role,
				"amount":   decision.Pricing.Amount,
				"currency": decision.Pricing.Currency,
				"name":     decision.Pricing.Name,
			}
		}

		var latest *models.PaymentRecord
		if rec, err := a.deps.PaymentStore.LatestPayment(c.Context(), userID, agent); err == nil {
			latest = rec
		} else if !errors.Is(err, payments.ErrNotFound) {
			xlog.Warn("Could not load latest payment", "user", userID, "agent", agent.String(), "error", err)
		}

		return c.JSON(fiber.Map{
			"hasAccess":       decision.Allowed(),
			"requiresPayment": decision.RequiresPayment(),
			"decision":        decision.Kind,
			"pricing":         pricing,
			"latestPayment":   latest,
		})
	}
}

// Webhook handlers acknowledge with a bare "OK" body. Senders retry on
// anything but 200, so internal follow-up problems that are already
// terminal (duplicate delivery, unknown failure record) still return
// success.
func (a *App) PaymentSuccessWebhook() fiber.Handler {
	return func(c *fiber.Ctx) error {
		externalID := c.Query("externalId")
		if externalID == "" {
			return errorJSONMessage(c, fiber.StatusBadRequest, "externalId is required")
		}

		err := a.deps.Payments.HandleSuccessWebhook(c.Context(), externalID)
		switch {
		case errors.Is(err, payments.ErrNotFound):
			return errorJSONMessage(c, fiber.StatusNotFound, "payment record not found")
		case err != nil:
			xlog.Error("Success webhook processing failed", "externalId", externalID, "error", err)
			return errorJSONMessage(c, fiber.StatusInternalServerError, "webhook processing failed")
		}
		return c.SendString("OK")
	}
}

func (a *App) PaymentFailureWebhook() fiber.Handler {
	return func(c *fiber.Ctx) error {
		externalID := c.Query("externalId")
		if externalID == "" {
			return errorJSONMessage(c, fiber.StatusBadRequest, "externalId is required")
		}

		if err := a.deps.Payments.HandleFailureWebhook(c.Context(), externalID, c.Query("status")); err != nil {
			xlog.Error("Failure webhook processing failed", "externalId", externalID, "error", err)
			return errorJSONMessage(c, fiber.StatusInternalServerError, "webhook processing failed")
		}
		return c.SendString("OK")
	}
}

func (a *App) VerifyPayment() fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload := struct {
			PaymentID any `json:"paymentId"`
		}{}
		if err := c.BodyParser(&payload); err != nil {
			return errorJSONMessage(c, fiber.StatusBadRequest, "invalid request body")
		}
		paymentID := cast.ToUint(payload.PaymentID)
		if paymentID == 0 {
			return errorJSONMessage(c, fiber.StatusBadRequest, "paymentId is required")
		}

		result, err := a.deps.Payments.Verify(c.Context(), paymentID)
		switch {
		case errors.Is(err, payments.ErrNotFound):
			return errorJSONMessage(c, fiber.StatusNotFound, "payment record not found")
		case errors.Is(err, whish.ErrGatewayUnavailable):
			return errorJSONMessage(c, fiber.StatusBadGateway, "payment gateway unavailable")
		case err != nil:
			xlog.Error("Payment verification failed", "paymentId", paymentID, "error", err)
			return errorJSONMessage(c, fiber.StatusInternalServerError, "verification failed")
		}
		return c.JSON(result)
	}
}

func (a *App) PaymentBalance() fiber.Handler {
	return func(c *fiber.Ctx) error {
		balance, err := a.deps.Gateway.Balance(c.Context())
		if err != nil {
			return errorJSONMessage(c, fiber.StatusBadGateway, "payment gateway unavailable")
		}
		return c.JSON(fiber.Map{
			"available": balance.Available,
			"pending":   balance.Pending,
			"total":     balance.Total,
			"currency":  balance.Currency,
		})
	}
}
