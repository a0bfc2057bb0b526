package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"

	"github.com/maarifa-ai/maarifa/db"
	"github.com/maarifa-ai/maarifa/pkg/cipher"
	"github.com/maarifa-ai/maarifa/pkg/config"
	"github.com/maarifa-ai/maarifa/pkg/knowledge"
	"github.com/maarifa-ai/maarifa/pkg/llm"
	"github.com/maarifa-ai/maarifa/pkg/objectstore"
	"github.com/maarifa-ai/maarifa/pkg/whish"
	"github.com/maarifa-ai/maarifa/pkg/xlog"
	"github.com/maarifa-ai/maarifa/services/access"
	"github.com/maarifa-ai/maarifa/services/chat"
	"github.com/maarifa-ai/maarifa/services/chathistory"
	"github.com/maarifa-ai/maarifa/services/history"
	"github.com/maarifa-ai/maarifa/services/payments"
	"github.com/maarifa-ai/maarifa/services/tools"
	"github.com/maarifa-ai/maarifa/webui"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		xlog.Error("Configuration error", "error", err)
		os.Exit(1)
	}

	gormDB, err := db.Connect(cfg)
	if err != nil {
		xlog.Error("Database error", "error", err)
		os.Exit(1)
	}

	chatCipher, err := cipher.New(cfg.ChatEncryptionKey)
	if err != nil {
		xlog.Error("Encryption setup error", "error", err)
		os.Exit(1)
	}

	model, err := llm.NewClient(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.Model)
	if err != nil {
		xlog.Error("Language model setup error", "error", err)
		os.Exit(1)
	}

	gateway := whish.NewClient(whish.Options{
		BaseURL:     cfg.WhishBaseURL,
		Channel:     cfg.WhishChannel,
		Secret:      cfg.WhishSecret,
		SuccessBase: cfg.PaymentSuccessBase,
		FailureBase: cfg.PaymentFailureBase,
	})

	// Knowledge backing: the remote training service when configured,
	// otherwise direct object storage.
	var resolver knowledge.Resolver
	var trainer *knowledge.TrainerClient
	if cfg.TrainingServiceURL != "" {
		trainer = knowledge.NewTrainerClient(cfg.TrainingServiceURL)
		resolver = trainer
	} else if cfg.KnowledgeBucket != "" {
		store, err := objectstore.New(context.Background(), cfg)
		if err != nil {
			xlog.Error("Object storage setup error", "error", err)
			os.Exit(1)
		}
		resolver = knowledge.NewStoreResolver(store)
	} else {
		xlog.Warn("No knowledge backend configured, chat runs without knowledge context")
	}

	paymentStore := payments.NewGormStore(gormDB)
	pricing := access.NewGormPricingResolver(gormDB)
	checker := access.NewChecker(pricing, paymentStore)
	paymentService := payments.NewService(paymentStore, gateway, pricing)

	turns := chathistory.NewGormStore(gormDB, chatCipher)
	analyzer := history.NewAnalyzer(turns)
	dispatcher := tools.NewDispatcher(tools.Config{
		NewsAPIKey:    cfg.NewsAPIKey,
		WeatherAPIKey: cfg.WeatherAPIKey,
	})
	orchestrator := chat.NewOrchestrator(
		chat.NewGormPersonaResolver(gormDB),
		resolver,
		analyzer,
		dispatcher,
		model,
		turns,
	)

	reconciler := payments.NewReconciler(paymentService)
	if err := reconciler.Start(); err != nil {
		xlog.Error("Could not start payment reconciler", "error", err)
		os.Exit(1)
	}
	defer reconciler.Stop()

	app := webui.NewApp(webui.Deps{
		Config:       cfg,
		DB:           gormDB,
		Access:       checker,
		Pricing:      pricing,
		Payments:     paymentService,
		PaymentStore: paymentStore,
		Gateway:      gateway,
		Orchestrator: orchestrator,
		Turns:        turns,
		Trainer:      trainer,
	})

	xlog.Info("Starting server", "addr", cfg.ListenAddr)
	if err := app.Listen(cfg.ListenAddr); err != nil {
		xlog.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}
