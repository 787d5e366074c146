package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/support-desk/internal/api/http"
	"github.com/spec-kit/support-desk/internal/api/http/handlers"
	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/lifecycle"
	"github.com/spec-kit/support-desk/internal/observability"
	"github.com/spec-kit/support-desk/internal/persistence"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/internal/repository/memory"
	"github.com/spec-kit/support-desk/internal/service"
	"github.com/spec-kit/support-desk/internal/worker"
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

	pool := pg.PoolHandle()
	if pool != nil && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pool, cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	var (
		categoryRepo    repository.CategoryRepository
		subcategoryRepo repository.SubcategoryRepository
		fieldGroupRepo  repository.FieldGroupRepository
		formFieldRepo   repository.FormFieldRepository
		ticketRepo      repository.TicketRepository
		commentRepo     repository.TicketCommentRepository
		historyRepo     repository.TicketHistoryRepository
		userRepo        repository.UserRepository
	)

	var redisConn *persistence.Redis
	var numbers service.TicketNumberAllocator

	if pool != nil {
		categoryRepo = repository.NewCategoryRepository(pool)
		subcategoryRepo = repository.NewSubcategoryRepository(pool)
		fieldGroupRepo = repository.NewFieldGroupRepository(pool)
		formFieldRepo = repository.NewFormFieldRepository(pool)
		ticketRepo = repository.NewTicketRepository(pool)
		commentRepo = repository.NewTicketCommentRepository(pool)
		historyRepo = repository.NewTicketHistoryRepository(pool)
		userRepo = repository.NewUserRepository(pool)

		redisConn = persistence.NewRedis(ctx, cfg.Redis, logger)
		defer redisConn.Close()
		numbers = persistence.NewRedisTicketNumberAllocator(redisConn.Client, "TKT")
	} else {
		// Development fallback: everything in process, nothing survives a restart.
		logger.Warn("running with in-memory storage")
		store := memory.NewStore()
		categoryRepo = store.Categories()
		subcategoryRepo = store.Subcategories()
		fieldGroupRepo = store.FieldGroups()
		formFieldRepo = store.FormFields()
		ticketRepo = store.Tickets()
		commentRepo = store.Comments()
		historyRepo = store.History()
		userRepo = store.Users()
		numbers = persistence.NewLocalTicketNumberAllocator("TKT")
	}

	dispatcher := events.NewInMemoryDispatcher(logger)

	schemaService := service.NewSchemaService(service.SchemaDependencies{
		SubcategoryRepo: subcategoryRepo,
		FieldGroupRepo:  fieldGroupRepo,
		FormFieldRepo:   formFieldRepo,
		Logger:          logger,
	})
	taxonomyService := service.NewTaxonomyService(service.TaxonomyDependencies{
		CategoryRepo:    categoryRepo,
		SubcategoryRepo: subcategoryRepo,
		FieldGroupRepo:  fieldGroupRepo,
		FormFieldRepo:   formFieldRepo,
		SchemaService:   schemaService,
		Logger:          logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:      ticketRepo,
		CommentRepo:     commentRepo,
		HistoryRepo:     historyRepo,
		UserRepo:        userRepo,
		CategoryRepo:    categoryRepo,
		SubcategoryRepo: subcategoryRepo,
		SchemaService:   schemaService,
		NumberAllocator: numbers,
		SLAPolicy:       slaPolicyFromConfig(cfg.SLA),
		Dispatcher:      dispatcher,
		Logger:          logger,
	})
	authService := service.NewAuthService(*cfg, userRepo)
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)

	worker.StartNotificationWorker(notificationService)
	go worker.NewSLAMonitor(ticketRepo, logger, 5*time.Minute).Run(ctx)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)
	metrics := observability.NewMetrics()

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redisConn, metrics),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Taxonomy:       handlers.NewTaxonomyHandler(taxonomyService, schemaService),
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

func slaPolicyFromConfig(cfg config.SLAConfig) *lifecycle.SLAPolicy {
	return lifecycle.NewSLAPolicy(map[domain.TicketPriority]time.Duration{
		domain.TicketPriorityUrgent: time.Duration(cfg.UrgentHours) * time.Hour,
		domain.TicketPriorityHigh:   time.Duration(cfg.HighHours) * time.Hour,
		domain.TicketPriorityNormal: time.Duration(cfg.NormalHours) * time.Hour,
		domain.TicketPriorityLow:    time.Duration(cfg.LowHours) * time.Hour,
	})
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
