package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"sourcing_marketplace/internal/api"
	"sourcing_marketplace/internal/config"
	"sourcing_marketplace/internal/logger"
	"sourcing_marketplace/internal/messaging"
	"sourcing_marketplace/internal/registry"
	"sourcing_marketplace/internal/repository"
	"sourcing_marketplace/internal/service"
	"sourcing_marketplace/internal/tasks"
	"sourcing_marketplace/internal/verification"
)

const registryCacheTTL = 15 * time.Minute

func runMigrations(db *pgxpool.Pool, log *zap.Logger) error {
	log.Info("Running database migrations")

	migrationsDir := "migrations"
	files, err := os.ReadDir(migrationsDir)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var migrationFiles []string
	for _, file := range files {
		if strings.HasSuffix(file.Name(), ".sql") {
			migrationFiles = append(migrationFiles, file.Name())
		}
	}

	sort.Strings(migrationFiles)

	for _, filename := range migrationFiles {
		log.Info("Running migration", zap.String("file", filename))

		content, err := os.ReadFile(filepath.Join(migrationsDir, filename))
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", filename, err)
		}

		_, err = db.Exec(context.Background(), string(content))
		if err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", filename, err)
		}
	}

	log.Info("All migrations completed")
	return nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.JSON)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting sourcing marketplace backend")

	db, err := pgxpool.New(context.Background(), cfg.DatabaseDSN())
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	log.Info("Connected to database")

	if err := runMigrations(db, log); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}

	natsClient, err := messaging.NewNATSClient(cfg.NATS.URL, log)
	if err != nil {
		log.Fatal("Failed to connect to NATS", zap.Error(err))
	}
	defer natsClient.Close()

	log.Info("Connected to NATS")

	supplierRepo := repository.NewSupplierRepository(db, log)
	verificationRepo := repository.NewVerificationRepository(db, log)
	orderRepo := repository.NewOrderRepository(db, log)
	categoryRepo := repository.NewCategoryRepository(db, log)
	userRepo := repository.NewUserRepository(db, log)
	cacheRepo := repository.NewRegistryCacheRepository(db, registryCacheTTL, log)

	sources := registry.New(registry.Credentials{
		FSSP:     cfg.Verification.FSSPAPIKey,
		RNP:      cfg.Verification.RNPAPIKey,
		EGRUL:    cfg.Verification.EGRULAPIKey,
		Licenses: cfg.Verification.LicensesAPIKey,
	}, cfg.Verification.FetchTimeout, cacheRepo, log)

	runner := verification.NewRunner(sources, log)
	ledger := verification.NewLedger()

	policy := tasks.RetryPolicy{
		MaxAttempts: cfg.Verification.MaxAttempts,
		BackoffBase: cfg.Verification.BackoffBase,
		MaxBackoff:  time.Minute,
	}
	worker := tasks.NewWorker(supplierRepo, verificationRepo, runner, ledger, natsClient, policy, log)
	if err := worker.Start(context.Background(), cfg.Verification.Queue); err != nil {
		log.Fatal("Failed to start verification worker", zap.Error(err))
	}

	supplierService := service.NewSupplierService(supplierRepo, verificationRepo, categoryRepo, ledger, natsClient, log)
	orderService := service.NewOrderService(orderRepo, categoryRepo, log)
	categoryService := service.NewCategoryService(categoryRepo, log)
	authService := service.NewAuthService(userRepo, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, log)

	err = natsClient.SubscribeVerificationCompleted(context.Background(), func(msg messaging.VerificationCompletedMessage) {
		log.Info("Verification finished",
			zap.String("task_id", msg.TaskID),
			zap.String("supplier_id", msg.SupplierID),
			zap.String("status", msg.Status))
	})
	if err != nil {
		log.Error("Failed to subscribe to verification completed", zap.Error(err))
	}

	server := api.NewServer(supplierService, orderService, categoryService, authService, log)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Info("Starting server", zap.String("address", addr))

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}
