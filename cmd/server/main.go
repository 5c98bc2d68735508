package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frbb/loan-engine/internal/config"
	"github.com/frbb/loan-engine/internal/credit"
	"github.com/frbb/loan-engine/internal/handler"
	"github.com/frbb/loan-engine/internal/logger"
	"github.com/frbb/loan-engine/internal/service"
	"github.com/frbb/loan-engine/internal/storage"
	"github.com/frbb/loan-engine/pkg/response"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zlog, err := logger.New(cfg.Logging.Level, cfg.Logging.Format, "loan-engine")
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zlog.Sync()
	zap.ReplaceGlobals(zlog)

	// Initialize storage
	startCtx, startCancel := context.WithTimeout(context.Background(), 30*time.Second)
	stores, err := storage.Open(startCtx, cfg, zlog)
	startCancel()
	if err != nil {
		zlog.Fatal("failed to initialize storage", zap.Error(err))
	}
	defer stores.Close()

	// Initialize services
	evaluator := credit.NewScoreEvaluator(credit.HashScoreSource{}, credit.Policy{
		MinScore:  cfg.Business.CreditMinScore,
		MaxAmount: cfg.GetCreditMaxAmount(),
	})
	loanService := service.NewLoanService(stores.Loans, stores.Customers, evaluator, cfg.InterestRates(), zlog)
	customerService := service.NewCustomerService(stores.Customers, stores.Accounts, cfg.Business.MinCustomerAge, zlog)

	loanHandler := handler.NewLoanHandler(loanService)
	customerHandler := handler.NewCustomerHandler(customerService)
	healthHandler := handler.NewHealthHandler(stores.DB, stores.RedisCmdable(), cfg.GetHealthTimeout())

	// Setup routes
	router := setupRoutes(loanHandler, customerHandler, healthHandler, zlog)

	// Start server
	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.GetReadTimeout(),
		WriteTimeout: cfg.GetWriteTimeout(),
	}

	// Start server in a goroutine
	go func() {
		zlog.Info("server starting", zap.String("addr", server.Addr), zap.String("env", cfg.Server.Env))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info("shutting down server")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		zlog.Error("server forced to shutdown", zap.Error(err))
		return
	}

	zlog.Info("server exited")
}

func setupRoutes(
	loanHandler *handler.LoanHandler,
	customerHandler *handler.CustomerHandler,
	healthHandler *handler.HealthHandler,
	zlog *zap.Logger,
) *mux.Router {
	router := mux.NewRouter()
	router.Use(response.RequestIDMiddleware, response.LoggingMiddleware(zlog), response.CORSMiddleware)

	// Health check
	router.HandleFunc("/health", healthHandler.Health).Methods(http.MethodGet)
	router.HandleFunc("/health/ready", healthHandler.Ready).Methods(http.MethodGet)

	// API routes
	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(response.JSONMiddleware)
	loanHandler.RegisterRoutes(api)
	customerHandler.RegisterRoutes(api)

	return router
}
