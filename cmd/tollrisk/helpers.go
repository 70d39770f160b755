package main

import (
	"context"
	"fmt"

	"github.com/Veraticus/tollgate-risk/internal/common"
	"github.com/Veraticus/tollgate-risk/internal/config"
	"github.com/Veraticus/tollgate-risk/internal/engine"
	"github.com/Veraticus/tollgate-risk/internal/ingest"
	"github.com/Veraticus/tollgate-risk/internal/risk"
	"github.com/Veraticus/tollgate-risk/internal/service"
	"github.com/Veraticus/tollgate-risk/internal/storage"
	"github.com/Veraticus/tollgate-risk/internal/tollnet"
	"github.com/Veraticus/tollgate-risk/internal/tui/themes"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// newEngine builds the pipeline from the ingest.* settings.
func newEngine() (*engine.Engine, error) {
	opts := []ingest.Option{ingest.WithWorkers(viper.GetInt("ingest.workers"))}

	if fee := viper.GetString("ingest.default_fee"); fee != "" {
		d, err := decimal.NewFromString(fee)
		if err != nil || d.IsNegative() {
			return nil, fmt.Errorf("%w: ingest.default_fee %q", common.ErrInvalidConfig, fee)
		}
		opts = append(opts, ingest.WithDefaultFee(d))
	}

	return engine.New(tollnet.Default(), opts...), nil
}

// initStorage opens the configured session repository.
func initStorage(ctx context.Context) (service.Repository, error) {
	return storage.Open(ctx, config.LoadStorageOptions())
}

// loadThresholds resolves the effective thresholds, honoring a --thresholds
// flag on cmd when one is set.
func loadThresholds(cmd *cobra.Command) (risk.Thresholds, error) {
	if f := cmd.Flags().Lookup("thresholds"); f != nil && f.Changed {
		viper.Set("risk.thresholds_file", f.Value.String())
	}
	th, err := config.LoadThresholds()
	if err != nil {
		return risk.Thresholds{}, common.NewUserError("Risk thresholds could not be loaded", err)
	}
	return th, nil
}

// themeFor picks the --theme flag over tui.theme.
func themeFor(cmd *cobra.Command) themes.Theme {
	name := viper.GetString("tui.theme")
	if f := cmd.Flags().Lookup("theme"); f != nil && f.Changed {
		name = f.Value.String()
	}
	return themes.ByName(name)
}
