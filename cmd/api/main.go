package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/crm-agent/internal/agent"
	httptransport "github.com/spec-kit/crm-agent/internal/api/http"
	"github.com/spec-kit/crm-agent/internal/api/http/handlers"
	"github.com/spec-kit/crm-agent/internal/auth"
	"github.com/spec-kit/crm-agent/internal/authz"
	"github.com/spec-kit/crm-agent/internal/config"
	"github.com/spec-kit/crm-agent/internal/events"
	"github.com/spec-kit/crm-agent/internal/llm"
	"github.com/spec-kit/crm-agent/internal/mention"
	"github.com/spec-kit/crm-agent/internal/observability"
	"github.com/spec-kit/crm-agent/internal/persistence"
	"github.com/spec-kit/crm-agent/internal/repository"
	"github.com/spec-kit/crm-agent/internal/service"
	"github.com/spec-kit/crm-agent/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	personRepo := repository.NewPersonRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	teamRepo := repository.NewTeamRepository(pool)
	messageRepo := repository.NewMessageRepository(pool)
	templateRepo := repository.NewTemplateRepository(pool)
	feedbackRepo := repository.NewFeedbackRepository(pool)
	conversationRepo := repository.NewConversationRepository(pool)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	authorizer := authz.NewEngine(teamRepo, logger)

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:   ticketRepo,
		FeedbackRepo: feedbackRepo,
		Authorizer:   authorizer,
		Dispatcher:   dispatcher,
		Logger:       logger,
	})
	feedbackService := service.NewFeedbackService(feedbackRepo)
	authService := service.NewAuthService(cfg.Auth, personRepo)

	notifier := &service.LoggingNotifier{Logger: logger, From: cfg.Notification.EmailFrom}
	notificationService := service.NewNotificationService(dispatcher, personRepo, notifier, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	resolver := mention.NewResolver(mention.ResolverDependencies{
		Tickets:   ticketRepo,
		Messages:  messageRepo,
		Persons:   personRepo,
		Templates: templateRepo,
		Teams:     teamRepo,
		Cache:     redis.Client,
		CacheTTL:  cfg.Agent.MentionCacheTTL,
		Logger:    logger,
	})

	toolDispatcher := agent.NewDispatcher(agent.TicketTools(ticketService), metrics, logger)
	orchestrator := agent.NewOrchestrator(agent.OrchestratorDependencies{
		Conversations: conversationRepo,
		Resolver:      resolver,
		Completer:     llm.NewClient(cfg.LLM),
		Dispatcher:    toolDispatcher,
		Logger:        logger,
		MaxIterations: cfg.Agent.MaxToolIterations,
		HistoryWindow: cfg.Agent.HistoryWindow,
	})

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), personRepo)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService, feedbackService),
		Agent:          handlers.NewAgentHandler(orchestrator),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
