// Package cmd is the CLI layer (spec.md §4.I): the Cobra command tree
// wiring Config, Store, Worker Manager, and the HTTP surface together.
// Grounded on the teacher's cmd/root.go + cmd/gateway.go tree shape.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags "-X .../cmd.Version=v1.0.0"
var Version = "dev"

var (
	cfgFile string
	dbFile  string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "cairnkernel",
	Short: "cairnkernel — task orchestration & persistence kernel",
	Long:  "cairnkernel: spawns, supervises, and records the output of LLM-agent task runs against a SQLite-backed store.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: cairnkernel.json or $CAIRN_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&dbFile, "db", "", "SQLite database path (overrides config database.path)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(doctorCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(workerCmd())
	rootCmd.AddCommand(taskCmd())
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("cairnkernel %s\n", Version)
		},
	}
}

// resolveConfigPath mirrors the teacher's resolveConfigPath: explicit
// flag, then env var, then a fixed default.
func resolveConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if v := os.Getenv("CAIRN_CONFIG"); v != "" {
		return v
	}
	return "cairnkernel.json"
}

// Execute runs the root cobra command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
