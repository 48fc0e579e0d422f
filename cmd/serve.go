package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fotobox/facesearch/internal/config"
	"github.com/fotobox/facesearch/internal/credentials"
	"github.com/fotobox/facesearch/internal/drive"
	"github.com/fotobox/facesearch/internal/embedding"
	"github.com/fotobox/facesearch/internal/logger"
	"github.com/fotobox/facesearch/internal/search"
	"github.com/fotobox/facesearch/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the face search web server",
	Long: `Start the facesearch web server.
The server exposes the face-search endpoint used by gallery frontends,
plus health and metrics endpoints.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides WEB_PORT)")
	serveCmd.Flags().String("host", "", "Host to bind to (overrides WEB_HOST)")
}

// buildService wires the Drive client, embedding client, and search service
// from configuration. A missing service account is a fatal configuration
// error: without Drive access no request can be served.
func buildService(cfg *config.Config, log *zap.Logger, opts search.Options) (*search.Service, error) {
	tokens, err := credentials.NewServiceAccountSource(cfg.Drive.ServiceAccount, credentials.DriveReadOnlyScope)
	if err != nil {
		return nil, fmt.Errorf("GOOGLE_SERVICE_ACCOUNT_JSON is not usable: %w", err)
	}

	store := drive.NewClient(tokens)
	embedder := embedding.NewClient(cfg.Embedding.URL, cfg.Embedding.MaxImageEdge)
	links := drive.Links{Domain: cfg.Drive.Domain}

	if opts.Threshold <= 0 {
		opts.Threshold = cfg.Match.Threshold
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = cfg.Match.Concurrency
	}
	if opts.SimilarLimit <= 0 {
		opts.SimilarLimit = cfg.Match.SimilarLimit
	}

	return search.NewService(store, embedder, links, log, opts), nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if port := mustGetInt(cmd, "port"); port > 0 {
		cfg.Web.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		cfg.Web.Host = host
	}

	log, err := logger.New(cfg.Logging.Env, cfg.Logging.Level)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	service, err := buildService(cfg, log, search.Options{})
	if err != nil {
		return err
	}

	server := web.NewServer(cfg, service, log)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("error during shutdown", zap.Error(err))
		}
	}()

	log.Info("facesearch ready",
		zap.String("host", cfg.Web.Host),
		zap.Int("port", cfg.Web.Port),
		zap.Float64("threshold", cfg.Match.Threshold),
	)

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
