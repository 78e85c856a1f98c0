package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"clipmerge/internal/api"
	"clipmerge/internal/job"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP control API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.config
			if port > 0 {
				cfg.Port = port
			}
			unlock, err := ctx.lockDataDir()
			if err != nil {
				return err
			}
			defer unlock()

			store, err := job.OpenStore(cfg.Store, cfg.DataDir)
			if err != nil {
				return fmt.Errorf("open job store: %w", err)
			}
			jobManager := job.NewManager(job.PipelineStarter(ctx.pipeline()), job.Options{DataDir: cfg.DataDir, Store: store})
			defer func() {
				if err := jobManager.Close(); err != nil {
					log.Warn().Err(err).Msg("close job store")
				}
			}()
			if err := jobManager.LoadFromDisk(); err != nil {
				log.Warn().Err(err).Msg("load jobs from disk")
			}

			baseCtx, baseCancel := context.WithCancel(context.Background())
			defer baseCancel()
			jobManager.SetBaseContext(baseCtx)

			if !cfg.Debug {
				gin.SetMode(gin.ReleaseMode)
			}
			router := api.NewRouter(api.NewAPI(jobManager, api.Options{
				VideoExtension: cfg.VideoExtension,
				AudioExtension: cfg.AudioExtension,
				Locator:        ctx.locator(),
			}))
			srv := newHTTPServer(cfg.Port, router)

			serveErr := make(chan error, 1)
			go func() {
				log.Info().Int("port", cfg.Port).Str("data_dir", cfg.DataDir).Str("store", cfg.Store).Msg("http server listening")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serveErr <- err
				}
				close(serveErr)
			}()

			select {
			case err := <-serveErr:
				if err != nil {
					return fmt.Errorf("http server failed: %w", err)
				}
			case <-waitForShutdownSignal():
				log.Info().Msg("shutdown signal received")
			}
			gracefulShutdown(srv, baseCancel, jobManager, shutdownTimeout)
			return nil
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Override the configured listen port")
	return cmd
}

func newHTTPServer(port int, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

func waitForShutdownSignal() <-chan os.Signal {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	return quit
}

func gracefulShutdown(srv *http.Server, cancelBase context.CancelFunc, jm *job.Manager, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("http server shutdown warning")
	}

	cancelBase()
	if !jm.WaitAll(ctx) {
		log.Warn().Msg("running job did not finish before timeout")
	}
	log.Info().Msg("server exited cleanly")
}
