package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"connectrpc.com/connect"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/at-ishikawa/conceptdeck/internal/bootstrap"
	"github.com/at-ishikawa/conceptdeck/internal/config"
	"github.com/at-ishikawa/conceptdeck/internal/logging"
	"github.com/at-ishikawa/conceptdeck/internal/server"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configFile string
	var debug bool
	cmd := &cobra.Command{
		Use:           "conceptdeck-server",
		Short:         "Serve the study service over Connect RPC",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configFile, debug)
		},
	}
	cmd.Flags().StringVar(&configFile, "config", os.Getenv("CONCEPTDECK_CONFIG"), "config file path")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")
	return cmd
}

func run(ctx context.Context, configFile string, debug bool) error {
	_ = godotenv.Load()

	loader, err := config.NewConfigLoader(configFile)
	if err != nil {
		return fmt.Errorf("config.NewConfigLoader() > %w", err)
	}
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("loader.Load() > %w", err)
	}

	logger, err := logging.New(cfg.Log.Mode, debug)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	app := bootstrap.New(logger)
	components, err := bootstrap.NewComponents(ctx, cfg, cfg.Database.Driver == config.DriverSQLite, logger)
	if err != nil {
		return fmt.Errorf("bootstrap.NewComponents() > %w", err)
	}
	app.AddShutdownHook(components.Close)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           newHandler(server.NewStudyHandler(components.Service, logger), cfg.Server.CORS),
		ReadHeaderTimeout: 10 * time.Second,
	}
	app.AddShutdownHook(srv.Shutdown)

	return app.Run(ctx, func(ctx context.Context) error {
		logger.Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("srv.ListenAndServe() > %w", err)
		}
		return nil
	})
}

// newHandler mounts the study service behind CORS and cleartext HTTP/2.
func newHandler(h *server.StudyHandler, corsCfg config.CORSConfig) http.Handler {
	path, handler := server.NewStudyServiceHandler(h, connect.WithCompressMinBytes(1024))

	mux := http.NewServeMux()
	mux.Handle(path, handler)

	c := cors.New(cors.Options{
		AllowedOrigins: corsCfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Connect-Protocol-Version", "Connect-Timeout-Ms"},
		MaxAge:         3600,
	})
	return c.Handler(h2c.NewHandler(mux, &http2.Server{}))
}
