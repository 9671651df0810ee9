package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"energy_dashboard/internal/backend"
	"energy_dashboard/internal/chart"
	"energy_dashboard/internal/config"
	"energy_dashboard/internal/handlers"
	"energy_dashboard/internal/logger"
	"energy_dashboard/internal/push"
	"energy_dashboard/internal/repository"
	"energy_dashboard/internal/server"
	"energy_dashboard/internal/service"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// load configs/config.yml
	cfg, err := config.Load()
	if err != nil {
		logger.Get(logger.InfoLevel).Fatalw("error reading config", "err", err)
	}

	// init logger at the configured level
	log := logger.Get(cfg.LogLevel)

	// open DB
	db, err := openDB(cfg, log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// wire dependencies
	repos := repository.NewRepository(db)
	api := backend.New(cfg.BackendURL, cfg.BackendTimeout)
	frames := chart.NewHub()
	controller := service.NewController(api, dialPush(ctx, cfg, api, log), frames, repos, cfg, log, nil)
	services := service.NewService(controller, repos)
	apiHandler := handlers.NewHandler(services, frames, log)

	// start the analytics engine
	go controller.Run(ctx)

	// start HTTP server
	srv := &server.Server{}
	runHTTPServer(srv, cfg.Port, apiHandler, log)

	// graceful shutdown
	waitForShutdown(cancel, srv, log)
}

// openDB initializes the SQLite database using configuration.
func openDB(cfg config.Config, log *logger.Logger) (*sql.DB, error) {
	dbPath := cfg.DBPath
	if dbPath == "" {
		log.Infow("db.path not set in config; using default file", "default", "dashboard.db")
		dbPath = "dashboard.db"
	}
	return repository.InitDB(dbPath)
}

// dialPush subscribes to the backend's websocket push channel. The dashboard
// degrades to polling when the channel is unavailable, so a failed dial only
// logs a warning.
func dialPush(ctx context.Context, cfg config.Config, api *backend.Client, log *logger.Logger) service.PushSource {
	url := cfg.PushURL
	if url == "" {
		url = api.PushURL()
	}
	sub, err := push.Dial(ctx, url, log)
	if err != nil {
		log.Warnw("push channel unavailable, falling back to polling", "url", url, "err", err)
		return nil
	}
	return sub
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if err := srv.Run(port, handler.InitRoutes()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop background goroutines
	cancel()

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalw("server forced to shutdown", "err", err)
	}
}
