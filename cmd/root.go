// =============================================================================
// Excel to EDI Generator - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. The root command is
// the base command that all other commands are attached to.
//
// COBRA CLI STRUCTURE:
//   rootCmd (edi-generator)
//   ├── generateCmd  (edi-generator generate FILE --partner P --type T)
//   ├── processCmd   (edi-generator process)
//   ├── profilesCmd  (edi-generator profiles list|validate)
//   ├── logsCmd      (edi-generator logs --user U)
//   └── versionCmd   (edi-generator version)
//
// CONFIGURATION:
//   The root command is responsible for:
//   1. Setting up global flags (--config, --verbose)
//   2. Building the shared application services (newApp)
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"

	"github.com/ginjaninja78/excel-to-edi/internal/audit"
	"github.com/ginjaninja78/excel-to-edi/internal/config"
	"github.com/ginjaninja78/excel-to-edi/internal/engine"
	"github.com/ginjaninja78/excel-to-edi/internal/envelope"
	"github.com/ginjaninja78/excel-to-edi/internal/logging"
	"github.com/ginjaninja78/excel-to-edi/internal/profile"
	"github.com/ginjaninja78/excel-to-edi/internal/registry"
	"github.com/ginjaninja78/excel-to-edi/pkg/utils"
	"github.com/spf13/cobra"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
// This can be overridden using the --config flag.
var cfgFile string

// verbose enables verbose logging when set to true.
var verbose bool

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "edi-generator",
	Short: "Excel to EDI Generator - Turn partner spreadsheets into X12 and EDIFACT documents",
	Long: `Excel to EDI Generator reads Excel workbooks and CSV exports and produces
standards-compliant EDI documents (ANSI X12 and UN/EDIFACT) for trading
partners.

Key Features:
  - One encoding profile per partner and document type (YAML)
  - Unique, persistent interchange, group and transaction control numbers
  - Delimiter collision detection, or escaping for EDIFACT
  - Concurrent batch processing with archival and error logs
  - Per-user audit trail

Example Usage:
  edi-generator generate orders.xlsx --partner RENESAS --type PO
  edi-generator process                    # Process every file in the input directory
  edi-generator profiles list              # Show the available partner profiles
  edi-generator logs --user buyer@acme.com # Show recent audit entries`,

	SilenceUsage: true,

	Run: func(cmd *cobra.Command, args []string) {
		// If no subcommand is provided, print the help message.
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	// --config flag: Allows the user to specify a custom configuration file.
	// A missing file means defaults.
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file",
	)

	// --verbose flag: Enables verbose/debug logging.
	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)
}

// =============================================================================
// APPLICATION SERVICES
// =============================================================================

// app bundles the services every command needs.
type app struct {
	cfg      *config.MainConfig
	logger   *logging.Logger
	registry *registry.Registry
	controls *envelope.Manager
	state    *envelope.FileStateStore
	engine   *engine.Engine
	files    *utils.FileManager
	audit    *audit.Log
}

// newApp loads the configuration and builds the shared services.
//
// SETUP STEPS:
//   1. Load config.yaml (defaults when missing)
//   2. Open the logger
//   3. Register built-in profiles, then the profiles directory on top
//   4. Restore the control number counters from the state file
//   5. Build the engine, file manager and audit log
func newApp() (*app, error) {
	cfg, err := config.LoadMainConfig(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load main config: %w", err)
	}

	logger, err := logging.New(logging.Options{
		Level:   cfg.LogLevel,
		Verbose: verbose,
		File:    cfg.LogFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}

	reg, err := loadRegistry(cfg)
	if err != nil {
		logger.Close()
		return nil, err
	}
	for _, w := range reg.Warnings() {
		logger.Warn("Profile warning: %s", w.Error())
	}
	logger.Debug("Registered %d profile(s)", reg.Len())

	controls := envelope.NewManager()
	state := envelope.NewFileStateStore(cfg.ControlNumberFile)
	if err := envelope.Restore(controls, state); err != nil {
		logger.Close()
		return nil, fmt.Errorf("failed to restore control numbers: %w", err)
	}

	files := utils.NewFileManager(cfg.InputDir, cfg.OutputDir, cfg.InputArchiveDir, cfg.OutputArchiveDir)
	files.ArchiveOnSuccess = cfg.ArchiveOnSuccess
	files.UseTimestampSubdirs = cfg.UseTimestampSubdirs

	return &app{
		cfg:      cfg,
		logger:   logger,
		registry: reg,
		controls: controls,
		state:    state,
		engine: engine.New(reg, controls,
			engine.WithLogger(logger),
			engine.WithFileNameFormat(cfg.FileNameFormat),
		),
		files: files,
		audit: audit.New(cfg.AuditDir),
	}, nil
}

// loadRegistry registers the built-in profiles and the user profiles.
// User profiles come last so they replace built-ins with the same key.
func loadRegistry(cfg *config.MainConfig) (*registry.Registry, error) {
	profiles, err := profile.Builtin()
	if err != nil {
		return nil, err
	}
	user, err := config.LoadProfiles(cfg.ProfilesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load partner profiles: %w", err)
	}
	reg, err := registry.New(append(profiles, user...)...)
	if err != nil {
		return nil, err
	}
	return reg, nil
}

// Close releases the log file.
func (a *app) Close() {
	a.logger.Close()
}
