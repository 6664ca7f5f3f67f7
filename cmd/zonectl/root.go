package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/bootstrap"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/infrastructure/config"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/infrastructure/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "zonectl",
		Short:        "Zone reporting worker and operations tool",
		Version:      bootstrap.Version,
		SilenceUsage: true,
	}
	cmd.AddCommand(
		newWorkerCmd(),
		newSeedPermissionsCmd(),
		newOutboxCmd(),
		newSchedulesCmd(),
	)
	return cmd
}

// withContainer loads configuration, builds the dependency container and
// hands it to fn. Resources are released when fn returns.
func withContainer(cmd *cobra.Command, fn func(c *bootstrap.Container) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	c, err := bootstrap.New(cmd.Context(), cfg, log)
	if err != nil {
		log.Error("Failed to initialize dependencies", zap.Error(err))
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.Close(closeCtx); err != nil {
			log.Warn("Error releasing resources", zap.Error(err))
		}
	}()
	return fn(c)
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
