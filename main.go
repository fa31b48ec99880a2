package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
)

func route(api *api) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", api.healthHandler)
	mux.HandleFunc("POST /api/v1/users/create", api.createUserHandler)
	mux.HandleFunc("GET /api/v1/users", api.getUsersHandler)
	mux.HandleFunc("GET /api/v1/users/username/{username}", api.getUserByUsernameHandler)
	mux.HandleFunc("GET /api/v1/users/userId/{userId}", api.getUserByIdHandler)
	mux.HandleFunc("PUT /api/v1/users/update/{userId}", api.updateUserByIdHandler)
	mux.HandleFunc("DELETE /api/v1/users/delete/{userId}", api.deleteUserByIdHandler)

	var h http.Handler = mux

	h = loggingMiddleware(api.logger, h)
	h = recoverMiddleware(api.logger, h)
	h = requestIDMiddleware(h)

	return h
}

func newAPI(addr string, store userStore, logger Logger) *api {
	return &api{
		addr:     addr,
		users:    newUserService(store, newUserCache(), logger),
		validate: newRequestValidator(),
		logger:   logger,
	}
}

func main() {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		newLogger(os.Stderr, "info", "json").Error(context.Background(), "config", "err", err)
		os.Exit(1)
	}

	logger := newLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	if err := run(cfg, logger); err != nil {
		logger.Error(context.Background(), "server stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg *Config, logger Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := openDB(ctx, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := runMigrations(ctx, db); err != nil {
		return err
	}

	api := newAPI(cfg.Addr, newPostgresStore(db), logger)

	srv := &http.Server{
		Addr:    api.addr,
		Handler: route(api),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "starting server", "addr", api.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
