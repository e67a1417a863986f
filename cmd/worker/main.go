// Command worker drains the voucher email queue. It needs Redis, because
// the API server enqueues claims from another process.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/voucherverse/storefront-api/internal/bootstrap"
	"github.com/voucherverse/storefront-api/internal/config"
	"github.com/voucherverse/storefront-api/internal/mail"
	"github.com/voucherverse/storefront-api/internal/observability"
	"github.com/voucherverse/storefront-api/internal/sysutil"
)

var version = "dev"

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	logger := sysutil.SetupLogger(os.Stderr, cfg.LogLevel, cfg.LogPretty, cfg.OTEL.ServiceName+"-worker")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version, observability.ProcessKey.String("worker"))
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		_ = shutdownOTel(sctx)
	}()

	if err := cfg.ValidateDispatch(); err != nil {
		log.Fatal().Err(err).Msg("dispatch config")
	}
	db, err := bootstrap.OpenStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("store")
	}
	backends, err := bootstrap.OpenBackends(ctx, cfg, true, logger)
	if err != nil {
		log.Fatal().Err(err).Msg("backends")
	}
	defer backends.Close()

	mailer, err := mail.NewResendMailer(cfg.Email.APIKey, cfg.Email.From)
	if err != nil {
		log.Fatal().Err(err).Msg("mailer")
	}

	g := bootstrap.StartDispatchers(ctx, cfg, db, backends, mailer, logger)
	log.Info().Int("workers", cfg.Email.Workers).Str("queue", cfg.Email.Queue).Msg("worker started")

	<-ctx.Done()
	log.Info().Msg("worker draining")
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("dispatchers")
	}
	log.Info().Msg("worker stopped")
}
