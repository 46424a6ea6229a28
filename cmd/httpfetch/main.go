package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/italolelis/httpfetch/internal/cleanup"
	"github.com/italolelis/httpfetch/internal/config"
	"github.com/italolelis/httpfetch/internal/http/rest"
	"github.com/italolelis/httpfetch/internal/logctx"
	"github.com/italolelis/httpfetch/internal/notifier"
	"github.com/italolelis/httpfetch/internal/prompt"
	"github.com/italolelis/httpfetch/internal/storage"
	"github.com/italolelis/httpfetch/internal/storage/sqlite"
	"github.com/italolelis/httpfetch/internal/telemetry"
	"github.com/italolelis/httpfetch/internal/transfer"
	"github.com/italolelis/httpfetch/internal/transport"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var version = "dev"

// exitCancelled is the conventional exit status after SIGINT.
const exitCancelled = 130

type options struct {
	url         string
	output      string
	interactive bool
	serve       bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if errors.Is(err, transfer.ErrCancelled) {
			os.Exit(exitCancelled)
		}

		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:     "httpfetch URL",
		Short:   "Download a single file over HTTP",
		Long:    `Download one file over HTTP or HTTPS with progress, cancellation and authentication prompts.`,
		Version: version,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.url = args[0]

			cfg, err := config.LoadConfig()
			if err != nil {
				slog.Error("config error", "err", err)

				return err
			}

			if opts.serve {
				cfg.Web.Enabled = true
			}

			logger := logctx.New(os.Stdout, cfg.SlogLevel())
			slog.SetDefault(logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger.Info("httpfetch starting...", "log_level", cfg.LogLevel, "version", version)

			if err := run(logctx.WithLogger(ctx, logger), cfg, opts); err != nil {
				if !errors.Is(err, transfer.ErrCancelled) {
					logger.Error("fatal error", "err", err)
				}

				return err
			}

			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Destination file name (default index.html)")
	cmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "Ask for credentials on the terminal when the server requires them")
	cmd.Flags().BoolVar(&opts.serve, "serve", false, "Expose the status API while downloading")

	return cmd
}

func run(ctx context.Context, cfg *config.Config, opts options) error {
	logger := logctx.LoggerFromContext(ctx)

	// =========================================================================
	// Start Telemetry
	tel, err := telemetry.New(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "httpfetch",
		ServiceVersion: version,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
	})
	if err != nil {
		return fmt.Errorf("failed to start telemetry: %w", err)
	}

	defer func() {
		if err := tel.Shutdown(context.WithoutCancel(ctx)); err != nil {
			logger.Error("failed to shutdown telemetry", "err", err)
		}
	}()

	// =========================================================================
	// Start Database
	database, err := sqlite.InitDB(cfg.DBPath)
	if err != nil {
		logger.Error("DB error", "err", err)

		return err
	}
	defer database.Close()

	history := sqlite.NewInstrumentedTransferRepository(database, tel)

	if err := cleanup.PruneHistory(ctx, history, cfg.HistoryRetention); err != nil {
		logger.Warn("history cleanup skipped", "err", err)
	}

	// =========================================================================
	// Start Transfer Controller
	observers := transfer.Observers{
		newProgressPrinter(os.Stderr, cfg.Title),
		storage.NewHistoryObserver(context.WithoutCancel(ctx), history, logger),
	}

	if cfg.DiscordWebhookURL != "" {
		notif := &notifier.DiscordNotifier{WebhookURL: cfg.DiscordWebhookURL}
		observers = append(observers, notifier.NewTransferObserver(context.WithoutCancel(ctx), notif, cfg.Title, logger))
	}

	var prompter transfer.Prompter = prompt.Static{Username: cfg.Auth.Username, Password: cfg.Auth.Password}
	if opts.interactive {
		prompter = prompt.NewTerminal(os.Stdin, os.Stderr)
	}

	tr := transport.NewInstrumentedTransport(
		transport.NewHTTPTransport(transport.WithProgressInterval(cfg.ProgressInterval)),
		tel,
	)

	ctrl := transfer.NewController(tr,
		transfer.WithDownloadDir(cfg.TargetDir),
		transfer.WithPrompter(prompter),
		transfer.WithObserver(observers),
	)

	if cfg.HasProxy() {
		ctrl.ConfigureProxy(cfg.Proxy.Host, cfg.Proxy.Port, cfg.Proxy.Username, cfg.Proxy.Password)
	}

	// Signals cancel through CancelDownload so the partial file is cleaned up,
	// hence the request itself must not inherit ctx's cancellation.
	if err := ctrl.StartDownload(context.WithoutCancel(ctx), opts.url, opts.output); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	done := make(chan struct{})

	g.Go(func() error {
		defer close(done)

		stopCancel := context.AfterFunc(gctx, ctrl.CancelDownload)
		defer stopCancel()

		snap, err := ctrl.Wait(context.WithoutCancel(gctx))
		if err != nil {
			return err
		}

		logger.Info("download completed", "path", snap.Path, "bytes", snap.BytesRead)

		return nil
	})

	// =========================================================================
	// Start API Service
	if cfg.Web.Enabled {
		server := setupServer(ctx, cfg, ctrl, history, tel)

		g.Go(func() error {
			logger.Info("Initializing API support", "host", cfg.Web.BindAddress)

			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}

			return nil
		})

		g.Go(func() error {
			select {
			case <-done:
			case <-gctx.Done():
			}

			// Give outstanding requests a deadline for completion.
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Web.ShutdownTimeout)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Error("failed to gracefully shutdown the server", "err", err)

				if err = server.Close(); err != nil {
					return fmt.Errorf("could not stop server gracefully: %w", err)
				}
			}

			return nil
		})
	}

	return g.Wait()
}

// setupServer prepares the handlers and services to create the http rest server.
func setupServer(ctx context.Context, cfg *config.Config, ctrl *transfer.Controller, history storage.TransferReadRepository, tel *telemetry.Telemetry) *http.Server {
	h := rest.NewStatusHandler(cfg.Web.Username, cfg.Web.Password, ctrl, history, tel)

	return &http.Server{
		Addr:         cfg.Web.BindAddress,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		Handler:      h.Routes(),
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}
}
