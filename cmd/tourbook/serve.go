package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	adapthttp "tourbook/internal/adapter/http"
	"tourbook/internal/app"
	"tourbook/internal/config"
	"tourbook/internal/logging"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx, config.Load())
	},
}

func serve(ctx context.Context, cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	repos, err := openRepositories(cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = repos.close() }()

	blobs, closeBlobs, err := openBlobStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeBlobs() }()

	uploads := app.NewUploadService(blobs, log.Named("uploads"))
	prefs := app.NewPreferenceStore()
	authSvc := app.NewAuthService(repos.users, repos.sessions, repos.experiences, uploads,
		app.AuthConfig{AvatarDir: cfg.AvatarUploadDir, SessionTTL: cfg.SessionTTL}, log.Named("auth"))

	var sso *adapthttp.SSO
	if cfg.OIDC.Enabled() {
		if sso, err = adapthttp.NewSSO(ctx, cfg.OIDC); err != nil {
			return err
		}
		log.Info("single sign-on enabled", zap.String("issuer", cfg.OIDC.Issuer))
	}

	srv := adapthttp.New(adapthttp.Services{
		Auth:    authSvc,
		Listing: app.NewListingService(repos.tours, prefs, log.Named("listing")),
		Tours:   app.NewTourService(repos.tours, repos.registrations, repos.users, uploads, cfg.TourImagesUploadDir, log.Named("tours")),
		Stats:   app.NewStatsService(repos.stats),
	}, sso, adapthttp.Options{
		CORSOrigins:   cfg.CORSOrigins,
		SessionTTL:    cfg.SessionTTL,
		MaxUploadSize: cfg.MaxUploadSize,
		ServeUploads:  cfg.BlobBackend == config.BackendDisk,
		AvatarDir:     cfg.AvatarUploadDir,
		TourImageDir:  cfg.TourImagesUploadDir,
	}, log.Named("http"))

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	janitor := app.NewJanitor(authSvc, prefs, cfg.PreferenceIdleTTL, cfg.JanitorInterval, log.Named("janitor"))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.Addr), zap.String("blob_backend", cfg.BlobBackend))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return janitor.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
