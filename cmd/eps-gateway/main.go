package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/eps/gateway/internal/api"
	"github.com/eps/gateway/internal/config"
	"github.com/eps/gateway/internal/platform/middleware"
	"github.com/eps/gateway/internal/signature"
	"github.com/eps/gateway/internal/spine"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "eps-gateway",
		Short: "FHIR to HL7v3 translation gateway for the Electronic Prescription Service",
	}

	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err == nil {
		logger = logger.Level(level)
	}

	// Signature verification
	trusted, err := cfg.TrustedCertificates()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to parse trusted sub-CA certificates")
	}
	var crl signature.CRLSource
	if cfg.CRLDistributionURL != "" {
		crl = signature.NewCRLFetcher(cfg.CRLDistributionURL, logger)
	} else {
		logger.Warn().Msg("no CRL distribution point configured, revocation checks disabled")
	}
	verifier := signature.NewVerifier(trusted, crl, logger)

	// Spine client
	spineClient := spine.NewHTTPClient(cfg.SpineBaseURL, cfg.SpineFromASID, logger)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit("5M"))
	e.Use(middleware.RequestTimeout(60 * time.Second))

	handler := api.NewHandler(spineClient, verifier, cfg.SpineFromASID, logger)
	handler.RegisterRoutes(e.Group("/FHIR/R4"))
	e.GET("/_status", handler.Status)

	// Start server
	addr := ":" + cfg.Port
	go func() {
		var err error
		if cfg.TLSEnabled {
			err = e.StartTLS(addr, cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = e.Start(addr)
		}
		if err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()
	logger.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("gateway started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
