package main

import (
	"fmt"
	"log/slog"

	"github.com/Veraticus/tollgate-risk/internal/certs"
	"github.com/Veraticus/tollgate-risk/internal/config"
	httpapi "github.com/Veraticus/tollgate-risk/internal/http"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the analysis HTTP API",
		Long: `Serve the analysis API:

  POST   /api/analyses               upload a statement (multipart field "file")
  GET    /api/analyses               list sessions
  GET    /api/analyses/:id           fetch a session
  DELETE /api/analyses/:id           delete a session
  POST   /api/analyses/:id/evaluate  re-score with a JSON thresholds overlay
  GET    /api/thresholds             effective thresholds
  GET    /api/gates                  toll network
  GET    /health`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	cmd.Flags().String("addr", "", "Listen address (default server.addr or :8080)")
	cmd.Flags().Int64("max-upload", httpapi.DefaultMaxUploadBytes, "Maximum upload size in bytes")
	cmd.Flags().Int("rate-limit", 0, "Scoring requests per minute per client (0 disables)")
	cmd.Flags().Bool("tls", false, "Serve HTTPS with a self-signed certificate")
	cmd.Flags().StringSlice("tls-host", nil, "Extra host names or IPs the certificate should cover")
	_ = viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("server.max_upload_bytes", cmd.Flags().Lookup("max-upload"))
	_ = viper.BindPFlag("server.rate_limit", cmd.Flags().Lookup("rate-limit"))
	_ = viper.BindPFlag("server.tls", cmd.Flags().Lookup("tls"))
	_ = viper.BindPFlag("server.tls_hosts", cmd.Flags().Lookup("tls-host"))

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	th, err := loadThresholds(cmd)
	if err != nil {
		return err
	}
	eng, err := newEngine()
	if err != nil {
		return err
	}

	repo, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Warn("Failed to close storage", "error", closeErr)
		}
	}()

	if viper.GetString("logging.level") != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := httpapi.NewRouter(httpapi.RouterDeps{
		Engine:           eng,
		Repository:       repo,
		Logger:           slog.Default(),
		Thresholds:       th,
		MaxUploadBytes:   viper.GetInt64("server.max_upload_bytes"),
		UploadsPerMinute: viper.GetInt("server.rate_limit"),
	})

	addr := config.ServerAddr()
	if !viper.GetBool("server.tls") {
		slog.Info("Serving analysis API", "addr", addr)
		return httpapi.Serve(ctx, addr, router, config.ShutdownTimeout())
	}

	manager := certs.NewFileManager(config.DefaultCertDir(), viper.GetStringSlice("server.tls_hosts")...)
	tlsConfig, err := certs.TLSConfig(manager)
	if err != nil {
		return fmt.Errorf("failed to prepare TLS certificate: %w", err)
	}
	certFile, _ := manager.Files()
	slog.Info("Serving analysis API over HTTPS", "addr", addr, "certificate", certFile)
	return httpapi.ServeTLS(ctx, addr, router, config.ShutdownTimeout(), tlsConfig)
}
