// =============================================================================
// DIAN Invoice Consolidator - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. The root command is
// the base command that all other commands are attached to.
//
// COBRA CLI STRUCTURE:
//   rootCmd (facturas)
//   ├── processCmd (facturas process)
//   ├── validateCmd (facturas validate)
//   └── versionCmd (facturas version)
//
// CONFIGURATION:
//   The root command is responsible for:
//   1. Setting up global flags (--config, --verbose)
//   2. Loading the configuration for the subcommands that need it
//   3. Setting up logging
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ginjaninja78/dian-invoice-consolidator/internal/config"
	"github.com/ginjaninja78/dian-invoice-consolidator/pkg/logger"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the configuration file.
// When empty, config.yaml in the working directory is used if present.
var cfgFile string

// verbose enables debug logging when set to true.
var verbose bool

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "facturas",
	Short: "DIAN Invoice Consolidator - Consolidate electronic invoices into one report",
	Long: `DIAN Invoice Consolidator reads the ZIP archives delivered with Colombian
electronic invoices (DIAN UBL 2.1), extracts every line item, converts
quantities and unit prices to a common unit with per-supplier rules, and
writes a single consolidated Excel workbook.

Key Features:
  - Reads Invoice and AttachedDocument XML, any namespace prefixes
  - Per-supplier conversion rules (JSON, YAML or an Excel sheet)
  - Monetary value of every line is preserved by the conversion
  - Malformed invoices are skipped and reported, never fatal
  - Optional archival of processed inputs

Example Usage:
  facturas process                          # Process every archive in facturas_zip
  facturas process --file enero.zip         # Process one archive
  facturas process --config ./facturas.yaml # Use a custom configuration file
  facturas validate                         # Check configuration and rules`,

	SilenceUsage: true,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. Interrupting the process cancels the run:
// documents not yet processed are reported as skipped.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"",
		"Path to the configuration file (default is ./config.yaml if present)",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)
}

// setup loads the configuration and initializes logging.
//
// RETURNS:
//   - The loaded configuration.
//   - The logger to hand to components.
//   - An error if the configuration is invalid.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}

	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	if err := logger.Init(level, cfg.LogDevelopment); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return cfg, logger.Get(), nil
}
