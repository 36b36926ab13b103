package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/sagarc03/storegate"
	"github.com/sagarc03/storegate/config"
	gatehttp "github.com/sagarc03/storegate/http"
	"github.com/sagarc03/storegate/keybackend"
	"github.com/sagarc03/storegate/metrics"
	"github.com/sagarc03/storegate/objectstore"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the storegate HTTP server.

With the filesystem object store, grant URIs point back at this server's
/objects routes, which verify the signature before accepting the upload.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Int("port", 5708, "HTTP server port")
	serveCmd.Flags().Bool("auto-migrate", false, "create the customer table at startup (sqlite, postgres, aztables)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	cfg, err := config.FromContext(ctx)
	if err != nil {
		return err
	}

	stack, err := openLocal(ctx, cfg, need{objects: true, entities: true})
	if err != nil {
		return err
	}
	defer stack.cleanup()

	handlerConfig := gatehttp.HandlerConfig{
		CORS:          cfg.CORS,
		MaxUploadSize: cfg.Server.MaxUploadSize,
	}

	if cfg.ObjectStore.Backend == objectstore.BackendFilesystem {
		keys, err := keybackend.NewSecretStore(cfg.ObjectStore.Filesystem.Keys)
		if err != nil {
			return fmt.Errorf("load signing keys: %w", err)
		}
		handlerConfig.Verifier = storegate.NewGrantVerifier(keys)
		if reader, ok := stack.objects.(storegate.ObjectReader); ok {
			handlerConfig.Objects = reader
		}
		if cfg.ObjectStore.Filesystem.BaseURL == "" {
			slog.Warn("object_store.filesystem.base_url is not set; grants cannot be issued")
		}
		slog.Info("serving signed object routes", "keys", keys.Len())
	}

	var service gatehttp.Service = stack.service
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)

		m := metrics.New()
		m.Register(reg)
		service = m.Instrument(stack.service)

		handlerConfig.Metrics = metrics.Handler(reg)
		handlerConfig.MetricsPath = cfg.Metrics.Path
	}

	handler := gatehttp.NewHandler(&handlerConfig, service)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)

	server := &http.Server{
		Addr:         addr,
		Handler:      handler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case <-sigCh:
		case <-ctx.Done():
		}

		slog.Info("shutting down server...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "err", err)
		}
		cancel()
	}()

	slog.Info("starting server",
		"addr", addr,
		"object_store", cfg.ObjectStore.Backend,
		"entity_store", cfg.EntityStore.Backend,
		"metrics", cfg.Metrics.Enabled,
	)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}
