// Command seed loads the demo storefront (business, categories, products
// and vouchers) into the configured database. Re-running it is a no-op.
package main

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/voucherverse/storefront-api/internal/bootstrap"
	"github.com/voucherverse/storefront-api/internal/config"
	"github.com/voucherverse/storefront-api/internal/repo"
	"github.com/voucherverse/storefront-api/internal/sysutil"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	sysutil.SetupLogger(os.Stderr, cfg.LogLevel, true, "seed")

	db, err := bootstrap.OpenStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("store")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := repo.SeedDemo(ctx, db, cfg.BusinessID, time.Now().UTC()); err != nil {
		log.Fatal().Err(err).Msg("seed")
	}
	log.Info().Uint("business_id", cfg.BusinessID).Str("driver", cfg.DB.Driver).Msg("seed complete")
}
