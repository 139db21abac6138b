package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"giveaway/internal/announce"
	"giveaway/internal/config"
	"giveaway/internal/handlers"
	"giveaway/internal/services"
	"giveaway/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"
)

const (
	limiterCleanupInterval = 10 * time.Minute
	shutdownTimeout        = 15 * time.Second
)

func main() {
	os.Exit(runWithLogger(io.Discard, run))
}

// runWithLogger opens the logger before fn runs and reports fn's error while it is still open.
func runWithLogger(logFile io.Writer, fn func() error) int {
	defer logger.Init("giveaway", true, false, logFile).Close()
	if err := fn(); err != nil {
		logger.Errorf("giveaway: %v", err)
		return 1
	}
	return 0
}

func run() error {
	// 1. Load configuration from the environment.
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Open the snapshot store.
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
	}
	defer st.Close()
	logger.Infof("Using %s store", cfg.Store.Driver)

	// 3. Initialize the Lottery Service, resuming whatever was stored.
	var notifier services.Notifier = announce.LogNotifier{}
	if cfg.Webhook.URL != "" {
		notifier = announce.NewWebhookNotifier(cfg.Webhook.URL, nil)
	}
	lotteryService := services.NewLotteryService(ctx, st,
		services.WithNotifier(notifier),
		services.WithStoreTimeout(cfg.Store.Timeout),
		services.WithLockOnResolve(cfg.LockOnResolve),
	)
	defer lotteryService.Close()

	// 4. Set up the Gin router.
	if !cfg.Verbose {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.Verbose {
		r.Use(gin.Logger())
	}

	limiter := handlers.NewRateLimiter(cfg.HTTP.CommandRate, cfg.HTTP.CommandBurst)
	handlers.NewHTTPHandler(lotteryService, cfg.HTTP.AdminToken, limiter).RegisterRoutes(r)
	if cfg.HTTP.AdminToken == "" {
		logger.Warningf("ADMIN_TOKEN is not set; command routes are open")
	}

	// 5. Start the background janitor for per-client rate limiters.
	janitorDone := make(chan struct{})
	defer close(janitorDone)
	go limiter.RunJanitor(limiterCleanupInterval, janitorDone)

	// 6. Run the server until a signal arrives.
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		logger.Infof("Server starting on http://localhost:%d", cfg.Port)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("run server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Infof("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}
	return nil
}
