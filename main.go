package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amirphl/Kuruma-no-Ichiba/app/handlers"
	"github.com/amirphl/Kuruma-no-Ichiba/app/middleware"
	"github.com/amirphl/Kuruma-no-Ichiba/app/router"
	"github.com/amirphl/Kuruma-no-Ichiba/app/seed"
	"github.com/amirphl/Kuruma-no-Ichiba/app/services"
	businessflow "github.com/amirphl/Kuruma-no-Ichiba/business_flow"
	"github.com/amirphl/Kuruma-no-Ichiba/config"
	"github.com/amirphl/Kuruma-no-Ichiba/migrations"
	"github.com/amirphl/Kuruma-no-Ichiba/repository"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var rootCmd = &cobra.Command{
	Use:           "kuruma",
	Short:         "Kuruma no Ichiba used-vehicle marketplace back office",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd(), migrateCmd(), seedCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Printf("kuruma: %v", err)
		os.Exit(1)
	}
}

// Application holds the long-lived dependencies of the HTTP server
type Application struct {
	cfg    *config.ProductionConfig
	logger *zap.Logger
	db     *gorm.DB
	cache  *redis.Client
	router router.Router
}

// bootstrap loads configuration and builds the logger every command starts from
func bootstrap() (*config.ProductionConfig, *zap.Logger, error) {
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return cfg, logger, nil
}

func serveCmd() *cobra.Command {
	var skipMigrationCheck bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			if !skipMigrationCheck {
				if err := checkSchema(cfg); err != nil {
					return err
				}
			}

			app, err := initializeApplication(cfg, logger)
			if err != nil {
				return err
			}
			defer app.close()

			return app.run()
		},
	}
	cmd.Flags().BoolVar(&skipMigrationCheck, "skip-migration-check", false, "start even if the schema is not at the latest migration")
	return cmd
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			db, err := migrations.Open(cfg.Database.URL())
			if err != nil {
				return err
			}
			defer db.Close()

			if err := migrations.MigrateUp(db); err != nil {
				return err
			}
			current, _, _, err := migrations.Status(db)
			if err != nil {
				return err
			}
			logger.Info("schema is up to date", zap.Uint("version", current))
			return nil
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			db, err := migrations.Open(cfg.Database.URL())
			if err != nil {
				return err
			}
			defer db.Close()

			if err := migrations.MigrateDown(db, steps); err != nil {
				return err
			}
			logger.Warn("rolled back migrations", zap.Int("steps", steps))
			return nil
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	status := &cobra.Command{
		Use:   "status",
		Short: "Print the applied and latest schema versions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := bootstrap()
			if err != nil {
				return err
			}
			db, err := migrations.Open(cfg.Database.URL())
			if err != nil {
				return err
			}
			defer db.Close()

			current, dirty, latest, err := migrations.Status(db)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "current: %d\nlatest:  %d\ndirty:   %t\n", current, latest, dirty)
			return nil
		},
	}

	cmd.AddCommand(up, down, status)
	return cmd
}

func seedCmd() *cobra.Command {
	var (
		catalogFile    string
		overwrite      bool
		adminUsername  string
		adminPassword  string
		skipAdminCheck bool
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write the initial filter catalog and admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			if catalogFile == "" {
				catalogFile = cfg.Catalog.SeedFile
			}
			if adminPassword == "" {
				adminPassword = os.Getenv("ADMIN_PASSWORD")
			}

			db, err := initializeDatabase(cfg.Database, cfg.Deployment.IsDevelopment(), logger)
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}

			if adminUsername == "" && !skipAdminCheck {
				return errors.New("--admin-username is required (or pass --catalog-only)")
			}
			if skipAdminCheck {
				adminUsername = ""
			}

			doc, err := seed.LoadCatalogFile(catalogFile)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			res, err := seed.NewSeeder(db, cfg.Security.BcryptCost, logger).Run(ctx, seed.Plan{
				Catalog:       doc,
				Overwrite:     overwrite,
				AdminUsername: adminUsername,
				AdminPassword: adminPassword,
			})
			if err != nil {
				return err
			}
			logger.Info("seed finished",
				zap.Int64("catalog_version", res.Catalog.Version),
				zap.Bool("catalog_written", res.CatalogWritten),
				zap.Bool("admin_created", res.AdminCreated),
			)
			return nil
		},
	}
	cmd.Flags().StringVar(&catalogFile, "catalog", "", "YAML catalog file (defaults to CATALOG_SEED_FILE)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "write the file as a new catalog version even if one exists")
	cmd.Flags().StringVar(&adminUsername, "admin-username", "", "username of the first admin account")
	cmd.Flags().StringVar(&adminPassword, "admin-password", "", "password of the first admin account (defaults to ADMIN_PASSWORD)")
	cmd.Flags().BoolVar(&skipAdminCheck, "catalog-only", false, "only seed the catalog")
	return cmd
}

func checkSchema(cfg *config.ProductionConfig) error {
	db, err := migrations.Open(cfg.Database.URL())
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migrations.CheckDBMigrationStatus(db); err != nil {
		return fmt.Errorf("schema check failed: %w (run `kuruma migrate up`)", err)
	}
	return nil
}

func initializeDatabase(cfg config.DatabaseConfig, verbose bool, logger *zap.Logger) (*gorm.DB, error) {
	level := gormlogger.Warn
	if verbose {
		level = gormlogger.Info
	}
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: gormlogger.New(zap.NewStdLog(logger), gormlogger.Config{
			SlowThreshold:             cfg.SlowQueryTime,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established",
		zap.Int("max_open_conns", cfg.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.MaxIdleConns),
	)
	return db, nil
}

func initializeCache(cfg config.CacheConfig, logger *zap.Logger) (*redis.Client, error) {
	if !cfg.Enabled || cfg.Provider != "redis" {
		logger.Info("catalog cache disabled")
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("redis connection established", zap.Int("db", cfg.RedisDB))
	return rc, nil
}

func initializeApplication(cfg *config.ProductionConfig, logger *zap.Logger) (*Application, error) {
	db, err := initializeDatabase(cfg.Database, cfg.Deployment.IsDevelopment(), logger)
	if err != nil {
		return nil, err
	}

	rc, err := initializeCache(cfg.Cache, logger)
	if err != nil {
		return nil, err
	}

	tokens, err := services.NewTokenService(
		cfg.JWT.AccessTokenTTL,
		cfg.JWT.RefreshTokenTTL,
		cfg.JWT.Issuer,
		cfg.JWT.Audience,
		cfg.JWT.UseRSAKeys,
		cfg.JWT.PrivateKey,
		cfg.JWT.PublicKey,
		cfg.JWT.SecretKey,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}

	cars := repository.NewCarRepository(db)
	inqs := repository.NewInquiryRepository(db)
	audits := repository.NewAuditLogRepository(db)
	users := repository.NewStaffUserRepository(db)
	catalogs := repository.NewFilterCatalogRepository(db)

	notifier := services.NewNotificationService(services.NewLogChannel(logger))

	catalog := businessflow.NewCatalogFlow(catalogs, audits, rc, cfg.Cache, logger)
	listings := businessflow.NewListingFlow(cars, inqs, catalog, audits, notifier, services.NewTemplateSummarizer(), cfg.Catalog, logger)
	inquiries := businessflow.NewInquiryFlow(inqs, cars, businessflow.NewActorResolver(users), audits, notifier, logger)
	search := businessflow.NewSearchFlow(cars, cfg.Search, logger)
	reports := businessflow.NewReportFlow(cars, inqs, audits, logger)
	auth := businessflow.NewStaffAuthFlow(users, tokens, audits, logger)

	r := router.NewFiberRouter(cfg, router.Handlers{
		Auth:     handlers.NewAuthHandler(auth, logger),
		Catalog:  handlers.NewCatalogHandler(catalog, logger),
		Listing:  handlers.NewListingHandler(listings, search, logger),
		Inquiry:  handlers.NewInquiryHandler(inquiries, logger),
		Report:   handlers.NewReportHandler(reports, logger),
		AuthGate: middleware.NewAuthMiddleware(tokens),
	}, logger)

	return &Application{
		cfg:    cfg,
		logger: logger,
		db:     db,
		cache:  rc,
		router: r,
	}, nil
}

// run serves until SIGINT or SIGTERM and then drains in-flight requests
func (a *Application) run() error {
	a.router.SetupRoutes()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		address := fmt.Sprintf("%s:%d", a.cfg.Server.Host, a.cfg.Server.Port)
		serveErr <- a.router.Start(address)
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("server stopped: %w", err)
	case sig := <-sigChan:
		a.logger.Info("shutting down gracefully", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.router.GetApp().ShutdownWithContext(shutdownCtx); err != nil {
		a.logger.Error("error during shutdown", zap.Error(err))
	}

	a.logger.Info("server stopped")
	return nil
}

func (a *Application) close() {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
	if sqlDB, err := a.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			a.logger.Warn("failed to close database", zap.Error(err))
		}
	}
}
