package migrate

import (
	"context"
	"fmt"

	"github.com/cody-community/cody-backend/pkg/config"
	"github.com/cody-community/cody-backend/pkg/db"
	"github.com/cody-community/cody-backend/pkg/logger"
)

// ShouldAutoRun reports whether the api applies migrations on boot: always
// for the embedded sqlite store, and in dev when auto-migrate is switched on.
func ShouldAutoRun(cfg *config.Config) bool {
	if cfg == nil {
		return false
	}
	return cfg.DB.IsSQLite() || (cfg.App.IsDev() && cfg.FeatureFlags.AutoMigrate)
}

// MaybeRunDev applies the embedded migrations when ShouldAutoRun allows it.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !ShouldAutoRun(cfg) {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	dialect := Dialect(cfg.DB.Driver)
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "dialect": dialect})

	applied, err := Up(ctx, sqlDB, dialect)
	if err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	logg.Info(logg.WithField(ctx, "applied", applied), "embedded migrations applied")
	return nil
}
