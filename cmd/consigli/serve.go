package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	apphttp "consigli/internal/http"
	"consigli/internal/log"
	"consigli/internal/middleware/cors"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

func serveCmd(st *rootState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), st)
		},
	}
	cmd.Flags().String("port", "8081", "listen port")
	_ = st.v.BindPFlag("port", cmd.Flags().Lookup("port"))
	return cmd
}

func runServe(ctx context.Context, st *rootState) error {
	app, err := st.app(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			st.logger.Error("Cleanup failed", log.FieldError, err)
		}
	}()

	srv := apphttp.NewServer(":"+st.cfg.Port, apphttp.Deps{
		Expenses:           app.Expenses,
		Advisor:            app.Advisor,
		Summary:            app.Analyzer,
		Ready:              app.Backend.Ready,
		Logger:             st.logger,
		RateLimitPerMinute: st.cfg.RateLimitPerMinute,
		TrustedProxies:     st.cfg.TrustedProxies,
		CORS: cors.Config{
			AllowedOrigins:   st.cfg.CORSAllowedOrigins,
			AllowCredentials: st.cfg.CORSAllowCredentials,
			MaxAge:           cors.DefaultConfig().MaxAge,
		},
	})

	errCh := make(chan error, 1)
	go func() {
		st.logger.Info("Starting consigli server",
			"port", st.cfg.Port,
			"backend", st.cfg.DataBackend,
			"events", app.Backend.Publisher != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	st.logger.Info("Server stopped gracefully")
	return nil
}
