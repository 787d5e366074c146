package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/observability"
	"github.com/spec-kit/support-desk/internal/persistence"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/internal/seeder"
	"github.com/spec-kit/support-desk/internal/service"
)

func main() {
	migrate := flag.Bool("migrate", true, "run migrations before seeding")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall seeding timeout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if cfg.Postgres.DSN == "" {
		logger.Fatal("POSTGRES_DSN is required for seeding")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	pool := pg.PoolHandle()
	if *migrate {
		if err := persistence.RunMigrations(ctx, pool, cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	subcategoryRepo := repository.NewSubcategoryRepository(pool)
	fieldGroupRepo := repository.NewFieldGroupRepository(pool)
	formFieldRepo := repository.NewFormFieldRepository(pool)

	schemaService := service.NewSchemaService(service.SchemaDependencies{
		SubcategoryRepo: subcategoryRepo,
		FieldGroupRepo:  fieldGroupRepo,
		FormFieldRepo:   formFieldRepo,
		Logger:          logger,
	})

	seed := seeder.New(
		repository.NewCategoryRepository(pool),
		subcategoryRepo,
		fieldGroupRepo,
		formFieldRepo,
		schemaService,
		logger,
	)
	if err := seed.Run(ctx, seeder.Templates); err != nil {
		logger.Fatal("seeding failed", zap.Error(err))
	}
	logger.Info("seeding complete", zap.Int("categories", len(seeder.Templates)))
}
