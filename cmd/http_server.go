package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/amsoft/dukpay-checkout/internal"
	"github.com/amsoft/dukpay-checkout/internal/core/events"
	"github.com/amsoft/dukpay-checkout/internal/gateway"
	"github.com/amsoft/dukpay-checkout/internal/order"
	orderpg "github.com/amsoft/dukpay-checkout/internal/order/postgres"
	"github.com/amsoft/dukpay-checkout/internal/session"
	"github.com/amsoft/dukpay-checkout/internal/transport"
	"github.com/amsoft/dukpay-checkout/internal/transport/rest"
	"github.com/amsoft/dukpay-checkout/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server serving the checkout, callback and return endpoints`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config          *internal.Config
	DB              *sqlx.DB
	Router          *chi.Mux
	CheckoutHandler *order.Handler
	WebhookHandler  *order.WebhookHandler
	Logger          *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	setupRoutes(deps)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	slog.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:    addr,
		Handler: deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			slog.Error("Database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("Server stopped")
}

func setupRoutes(deps *Dependencies) {
	rest.RegisterAllRoutes(deps.Router, deps.DB.DB, deps.CheckoutHandler, deps.WebhookHandler, deps.Config.Server.AllowedOrigins, deps.Logger)
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(os.Getenv("APP_ENV"))
	log := logger.L()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize orm: %w", err)
	}

	repository := orderpg.NewOrderRepository(gormDB)

	eventBus := events.NewEventBus(log)
	registerOrderEventHandlers(eventBus, log)

	gatewayClient := gateway.NewClient(gateway.Config{
		BaseURL:    config.Gateway.BaseURL,
		APIKey:     config.Gateway.APIKey,
		MerchantID: config.Gateway.MerchantID,
		Sandbox:    config.Gateway.Sandbox,
		Timeout:    config.Gateway.Timeout,
	}, log)

	dispatcher := order.NewDispatcher(gatewayClient, log)
	service := order.NewService(dispatcher, gatewayClient, repository, eventBus, order.Config{
		ReturnURL:       config.Gateway.ReturnURL,
		NotifyURL:       config.Gateway.NotifyURL,
		DefaultCurrency: config.Gateway.DefaultCurrency,
	}, log)

	sessions := session.NewMemoryStore(config.Session.MaxEntries, config.Session.TTL)

	baseHandler := transport.NewBaseHandler(log)
	checkoutHandler := order.NewHandler(baseHandler, service, sessions, config.Session.CookieName, log)
	webhookHandler := order.NewWebhookHandler(baseHandler, service, gatewayClient, log)

	return &Dependencies{
		Config:          config,
		Logger:          log,
		DB:              db,
		Router:          chi.NewRouter(),
		CheckoutHandler: checkoutHandler,
		WebhookHandler:  webhookHandler,
	}, nil
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
