package bootstrap

import (
	"context"

	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"spotlight/app/internal/data/database"
	datadiscovery "spotlight/app/internal/data/discovery"
	"spotlight/app/internal/data/migrations"
	domaindiscovery "spotlight/app/internal/domain/discovery"
	domainllm "spotlight/app/internal/domain/llm"
	"spotlight/app/internal/infrastructure/llm/openai"
	"spotlight/app/internal/platform/config"
	presentationhttp "spotlight/app/internal/presentation/http"
)

type Dependencies struct {
	Config    config.Config
	Logger    *logrus.Logger
	SentryHub *sentry.Hub
}

type Result struct {
	DiscoveryService domaindiscovery.Service
	HTTPServer       *presentationhttp.Server
	Database         *gorm.DB
	Cleanup          func() error
}

// Build composes the Spotlight application layers and returns the constructed components.
func Build(ctx context.Context, deps Dependencies) (Result, error) {
	db, err := database.Open(database.Options{Path: deps.Config.DBPath, Logger: deps.Logger})
	if err != nil {
		return Result{}, eris.Wrap(err, "opening database")
	}

	closeOnError := func(wrapper error) (Result, error) {
		if closeErr := database.Close(db); closeErr != nil && deps.Logger != nil {
			deps.Logger.WithError(closeErr).Error("closing database after bootstrap failure")
		}
		return Result{}, wrapper
	}

	if err := migrations.MigrateDiscoveries(ctx, db, deps.Logger); err != nil {
		return closeOnError(eris.Wrap(err, "running discovery migrations"))
	}

	repo, err := datadiscovery.NewRepository(db, deps.Logger)
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating discovery repository"))
	}

	orchestrator, err := NewOrchestrator(deps.Config, deps.Logger)
	if err != nil {
		return closeOnError(err)
	}

	discoveryService, err := domaindiscovery.NewService(orchestrator, repo, deps.Logger, deps.SentryHub)
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating discovery service"))
	}

	httpServer, err := presentationhttp.NewServer(presentationhttp.Options{
		DiscoveryService: discoveryService,
		DB:               db,
		Logger:           deps.Logger,
		SentryHub:        deps.SentryHub,
		RateLimiter: presentationhttp.RateLimiterSettings{
			Burst:             deps.Config.RateLimit.Burst,
			RequestsPerSecond: deps.Config.RateLimit.RequestsPerSecond,
			ClientTTL:         deps.Config.RateLimit.ClientTTL,
		},
	})
	if err != nil {
		return closeOnError(eris.Wrap(err, "initialising http server"))
	}

	cleanup := func() error {
		httpServer.Close()
		return database.Close(db)
	}

	return Result{
		DiscoveryService: discoveryService,
		HTTPServer:       httpServer,
		Database:         db,
		Cleanup:          cleanup,
	}, nil
}

// NewOrchestrator builds the model adapter for the configured LLM and wraps it in an Orchestrator.
// The command-line tool uses it directly, without the database or HTTP layers.
func NewOrchestrator(cfg config.Config, logger *logrus.Logger) (*domaindiscovery.Orchestrator, error) {
	model, target, err := NewModel(cfg, logger)
	if err != nil {
		return nil, err
	}

	if logger != nil {
		logger.WithFields(logrus.Fields{
			"provider": target.Provider,
			"model":    target.Model,
			"base_url": target.BaseURL,
		}).Info("llm model configured")
	}

	orchestrator, err := domaindiscovery.NewOrchestrator(domaindiscovery.OrchestratorOptions{
		Model:  model,
		Logger: logger,
	})
	if err != nil {
		return nil, eris.Wrap(err, "creating discovery orchestrator")
	}

	return orchestrator, nil
}

// NewModel resolves LLM_MODEL against LLM_ENDPOINT and builds the chat-completions model.
func NewModel(cfg config.Config, logger *logrus.Logger) (domainllm.Model, openai.Target, error) {
	target, err := openai.ResolveModel(cfg.LLMModel, cfg.LLMEndpoint)
	if err != nil {
		return nil, openai.Target{}, eris.Wrap(err, "resolving llm model")
	}

	client, err := openai.NewClient(openai.ClientOptions{
		APIKey:  cfg.LLMAPIKey,
		BaseURL: target.BaseURL,
		Timeout: cfg.LLMTimeout,
		Logger:  logger,
	})
	if err != nil {
		return nil, openai.Target{}, eris.Wrap(err, "creating llm client")
	}

	model, err := openai.NewModel(openai.ModelOptions{Client: client, Model: target.Model})
	if err != nil {
		return nil, openai.Target{}, eris.Wrap(err, "initialising llm model")
	}

	return model, target, nil
}
