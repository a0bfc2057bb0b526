package webui

import (
	"encoding/json"
	"errors"

	fiber "github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	models "github.com/maarifa-ai/maarifa/dbmodels"
)

type agentPayload struct {
	Name          string   `json:"name"`
	Tone          string   `json:"tone"`
	Traits        []string `json:"traits"`
	SystemPrompt  string   `json:"systemPrompt"`
	Role          string   `json:"role"`
	PriceAmount   string   `json:"priceAmount"`
	PriceCurrency string   `json:"priceCurrency"`
}

func (a *App) CreateAgent() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var payload agentPayload
		if err := c.BodyParser(&payload); err != nil {
			return errorJSONMessage(c, fiber.StatusBadRequest, "invalid request body")
		}
		if payload.Name == "" {
			return errorJSONMessage(c, fiber.StatusBadRequest, "name is required")
		}

		role := models.RoleFree
		amount := decimal.Zero
		currency := models.Currency("")
		if payload.Role == string(models.RolePaid) {
			parsed, err := decimal.NewFromString(payload.PriceAmount)
			if err != nil || !parsed.IsPositive() {
				return errorJSONMessage(c, fiber.StatusBadRequest, "priceAmount must be a positive number for paid agents")
			}
			currency = models.Currency(payload.PriceCurrency)
			if !currency.Valid() {
				return errorJSONMessage(c, fiber.StatusBadRequest, "priceCurrency must be one of USD, LBP, AED")
			}
			role = models.RolePaid
			amount = parsed
		}

		traits, _ := json.Marshal(payload.Traits)
		agent := models.Agent{
			Name:          payload.Name,
			Tone:          payload.Tone,
			Traits:        traits,
			SystemPrompt:  payload.SystemPrompt,
			Role:          role,
			PriceAmount:   amount,
			PriceCurrency: currency,
		}
		if err := a.deps.DB.WithContext(c.Context()).Create(&agent).Error; err != nil {
			return errorJSONMessage(c, fiber.StatusInternalServerError, "could not create agent")
		}
		return c.Status(fiber.StatusCreated).JSON(agent)
	}
}

func (a *App) GetAgent() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := models.ParseAgentID(c.Params("agentId"))
		if err != nil {
			return errorJSONMessage(c, fiber.StatusBadRequest, err.Error())
		}

		switch id.Kind {
		case models.AgentKindLegacy:
			var p models.Personality
			if err := a.deps.DB.WithContext(c.Context()).First(&p, id.Legacy).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return errorJSONMessage(c, fiber.StatusNotFound, "agent not found")
				}
				return errorJSONMessage(c, fiber.StatusInternalServerError, "could not load agent")
			}
			return c.JSON(p)
		default:
			var agent models.Agent
			if err := a.deps.DB.WithContext(c.Context()).Where("id = ?", id.UUID).First(&agent).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return errorJSONMessage(c, fiber.StatusNotFound, "agent not found")
				}
				return errorJSONMessage(c, fiber.StatusInternalServerError, "could not load agent")
			}
			return c.JSON(agent)
		}
	}
}

func (a *App) ListAgents() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var agents []models.Agent
		if err := a.deps.DB.WithContext(c.Context()).
			Where("archive = ?", false).
			Order("created_at DESC").
			Find(&agents).Error; err != nil {
			return errorJSONMessage(c, fiber.StatusInternalServerError, "could not list agents")
		}
		return c.JSON(fiber.Map{"agents": agents, "count": len(agents)})
	}
}
