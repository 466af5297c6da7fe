package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/bambooslack/pkg/cli/config"
	httpctrl "github.com/secmon-lab/bambooslack/pkg/controller/http"
	"github.com/secmon-lab/bambooslack/pkg/service/worker"
	"github.com/secmon-lab/bambooslack/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

const shutdownTimeout = 10 * time.Second

func cmdServe() *cli.Command {
	var appCfg appConfig
	var serverCfg config.Server

	var flags []cli.Flag
	flags = append(flags, serverCfg.Flags()...)
	flags = append(flags, appCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server and status synchronization",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := appCfg.load(&serverCfg); err != nil {
				return goerr.Wrap(err, "failed to load configuration")
			}
			if err := serverCfg.Validate(); err != nil {
				return err
			}

			logging.Default().Info("Serve configuration",
				"server", serverCfg,
				"repository", appCfg.repository,
				"slack", appCfg.slack,
				"cipher", appCfg.cipher,
			)

			uc, repo, err := appCfg.build(ctx, serverCfg.BaseURL())
			if err != nil {
				return err
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logging.Default().Error("failed to close repository", "error", err.Error())
				}
			}()

			httpHandler, err := httpctrl.New(uc.Command, uc.Install, appCfg.slack.SigningSecret())
			if err != nil {
				return goerr.Wrap(err, "failed to create http server")
			}
			server := &http.Server{
				Addr:              serverCfg.Addr(),
				Handler:           httpHandler,
				ReadHeaderTimeout: 30 * time.Second,
			}

			syncWorker := worker.NewReconcileWorker(uc.Reconcile, serverCfg.SyncInterval())
			if err := syncWorker.Start(ctx); err != nil {
				return goerr.Wrap(err, "failed to start reconcile worker")
			}

			// Setup signal handling for graceful shutdown
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigCh)

			// Start server in goroutine
			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("Starting HTTP server", "addr", serverCfg.Addr(), "tls", serverCfg.TLSEnabled())
				var err error
				if serverCfg.TLSEnabled() {
					err = server.ListenAndServeTLS(serverCfg.TLSCert(), serverCfg.TLSKey())
				} else {
					err = server.ListenAndServe()
				}
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			// Wait for shutdown signal or server error
			select {
			case err := <-errCh:
				syncWorker.Stop()
				return err
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)
			case <-ctx.Done():
				logging.Default().Info("Context canceled, shutting down")
			}

			// Stop the worker first so no tick runs against a closing repository
			syncWorker.Stop()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				return goerr.Wrap(err, "failed to shutdown server gracefully")
			}

			logging.Default().Info("Server shutdown completed")
			return nil
		},
	}
}
