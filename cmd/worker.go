package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/cairnkernel/internal/cairnworker"
)

// workerCmd is the child OS process entrypoint spec.md §6 names: the
// "<binary> worker <run_id>" command line the Worker Manager spawns.
func workerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker <run_id>",
		Short: "Run one agent task to completion (internal: spawned by the Worker Manager)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogging()

			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			st, err := openStore(cfg)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()

			return cairnworker.Run(context.Background(), st, *cfg, args[0], logger)
		},
	}
}
