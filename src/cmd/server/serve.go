package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ce-fello/bug-tracker-service/src/internal/api"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Apply migrations and run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve()
		},
	}
	cmd.Flags().String("port", "", "listen port (overrides PORT)")
	cmd.Flags().String("migrations-dir", "", "migrations directory (overrides MIGRATIONS_DIR)")
	return cmd
}

func (a *app) serve() error {
	sugar := a.logger.Sugar()

	if err := runMigrations(a.cfg.DatabaseURL, a.cfg.MigrationsDir, false, sugar); err != nil {
		return err
	}

	svc, closeDB, err := a.openService()
	if err != nil {
		return err
	}
	defer closeDB()

	h := api.NewHandler(svc, a.logger, a.cfg.RequestTimeout)
	r := chi.NewRouter()
	r.Use(api.RequestIDMiddleware, api.LoggerMiddleware(a.logger), api.Recoverer(a.logger))
	api.RegisterRoutes(r, h)

	srv := &http.Server{
		Addr:         ":" + a.cfg.Port,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		sugar.Infof("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}
	sugar.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}
	sugar.Info("server stopped")
	return nil
}
