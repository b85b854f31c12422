package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	authgin "github.com/PaulFidika/quickauth/adapters/gin"
	"github.com/PaulFidika/quickauth/adapters/ginutil"
	"github.com/PaulFidika/quickauth/core"
	"github.com/PaulFidika/quickauth/logging"
	"github.com/PaulFidika/quickauth/siwf"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Quick Auth HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logging.Module("serve")
		if settings.Domain == "" {
			return errors.New("a domain is required (--domain or QUICKAUTH_DOMAIN)")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		rt, err := newRuntime(ctx, settings)
		if err != nil {
			return err
		}
		defer rt.Close()

		dispatcher, err := rt.Dispatcher(ctx)
		if err != nil {
			return err
		}
		nonces, err := rt.Nonces()
		if err != nil {
			return err
		}
		limiter, err := rt.Limiter()
		if err != nil {
			return err
		}
		if err := rt.Start(ctx); err != nil {
			return err
		}

		svc := &authgin.Service{
			Accept:   settings.Accept(),
			Verifier: dispatcher,
			Nonces:   nonces,
			SIWF:     siwf.NewVerifier(settings.Domain, nonces),
			Limiter:  limiter,
			Events:   core.LogrusEventLogger{Entry: logging.Module("verify")},
		}

		gin.SetMode(gin.ReleaseMode)
		r := gin.New()
		r.Use(gin.Recovery(), ginutil.RequestID())
		r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
		svc.GinRegisterAPI(r)

		server := &http.Server{
			Addr:              settings.Addr,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			log.WithField("addr", settings.Addr).
				WithField("strategy", dispatcher.Strategy()).
				Info("listening")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("server: %w", err)
			}
			return nil
		case <-ctx.Done():
		}
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "address to listen on (env QUICKAUTH_ADDR)")
	serveCmd.Flags().String("scheduler", "", "nonce alarm scheduler: timer or river (env QUICKAUTH_SCHEDULER)")
}
