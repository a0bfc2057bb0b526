// Package webui is the HTTP surface. Handlers translate between the
// transport and the service contracts; no business logic lives here.
package webui

import (
	fiber "github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/maarifa-ai/maarifa/pkg/config"
	"github.com/maarifa-ai/maarifa/pkg/knowledge"
	"github.com/maarifa-ai/maarifa/pkg/whish"
	"github.com/maarifa-ai/maarifa/services/access"
	"github.com/maarifa-ai/maarifa/services/chat"
	"github.com/maarifa-ai/maarifa/services/chathistory"
	"github.com/maarifa-ai/maarifa/services/payments"
)

const maxMessageLength = 4000

// Deps is the explicitly constructed component graph. Everything the
// handlers touch comes in through here; there is no ambient state.
type Deps struct {
	Config       *config.Config
	DB           *gorm.DB
	Access       *access.Checker
	Pricing      access.PricingResolver
	Payments     *payments.Service
	PaymentStore payments.Store
	Gateway      *whish.Client
	Orchestrator *chat.Orchestrator
	Turns        chathistory.Store
	Trainer      *knowledge.TrainerClient
}

type App struct {
	*fiber.App
	deps Deps
}

func NewApp(deps Deps) *App {
	webapp := fiber.New(fiber.Config{
		BodyLimit: 20 * 1024 * 1024,
	})

	a := &App{
		App:  webapp,
		deps: deps,
	}
	a.registerRoutes(webapp)
	return a
}

func errorJSONMessage(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": message})
}
