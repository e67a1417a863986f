// Command server runs the VoucherVerse storefront API. Unless
// DISPATCH_INPROCESS is off it also runs the email dispatchers, which is
// the only supported setup without Redis.
//
//	@title			VoucherVerse Storefront API
//	@version		1.0
//	@description	Product listing, voucher claims with email delivery tracking, reviews and testimonials.
//	@BasePath		/api
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	_ "github.com/voucherverse/storefront-api/docs"
	"github.com/voucherverse/storefront-api/internal/bootstrap"
	"github.com/voucherverse/storefront-api/internal/config"
	"github.com/voucherverse/storefront-api/internal/content"
	httpapi "github.com/voucherverse/storefront-api/internal/http"
	"github.com/voucherverse/storefront-api/internal/mail"
	"github.com/voucherverse/storefront-api/internal/observability"
	"github.com/voucherverse/storefront-api/internal/services"
	"github.com/voucherverse/storefront-api/internal/sysutil"
)

// version is set with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	_ = godotenv.Load()
	cfg := config.MustLoad()
	logger := sysutil.SetupLogger(os.Stderr, cfg.LogLevel, cfg.LogPretty, cfg.OTEL.ServiceName)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version, observability.ProcessKey.String("api"))
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := bootstrap.OpenStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("store")
	}

	backends, err := bootstrap.OpenBackends(ctx, cfg, !cfg.Email.InProcess, logger)
	if err != nil {
		log.Fatal().Err(err).Msg("backends")
	}
	defer backends.Close()

	site := content.Default()
	if cfg.ContentPath != "" {
		if site, err = content.Load(cfg.ContentPath); err != nil {
			log.Fatal().Err(err).Str("path", cfg.ContentPath).Msg("content")
		}
	}

	var cache *services.ListingCache
	if cfg.ListingCacheTTL > 0 {
		cache = services.NewListingCache(cfg.ListingCacheTTL)
		unwatch, err := cache.Watch(ctx, backends.Broker)
		if err != nil {
			log.Fatal().Err(err).Msg("listing cache watch")
		}
		defer unwatch()
	}

	var workers *errgroup.Group
	if cfg.Email.InProcess {
		if err := cfg.ValidateDispatch(); err != nil {
			log.Fatal().Err(err).Msg("dispatch config")
		}
		mailer, err := mail.NewResendMailer(cfg.Email.APIKey, cfg.Email.From)
		if err != nil {
			log.Fatal().Err(err).Msg("mailer")
		}
		workers = bootstrap.StartDispatchers(ctx, cfg, db, backends, mailer, logger)
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	hub := httpapi.RegisterRoutes(r, httpapi.Deps{
		DB:     db,
		Queue:  backends.Queue,
		Broker: backends.Broker,
		Cache:  cache,
		Site:   site,
		Log:    logger,
	}, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("base_path", cfg.APIBasePath).
			Bool("redis", backends.Redis != nil).Bool("dispatch_inprocess", cfg.Email.InProcess).
			Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	<-ctx.Done()
	log.Info().Int64("open_streams", hub.Active()).Msg("shutting down")

	sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
	if workers != nil {
		_ = workers.Wait()
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info().Msg("server stopped")
}
