// Package commands implements the CLI commands for rlockctl.
package commands

import (
	"os"

	"github.com/google/uuid"
	"github.com/marmos91/regionlock/cmd/rlockctl/cmdutil"
	"github.com/marmos91/regionlock/internal/logger"
	"github.com/marmos91/regionlock/pkg/config"
	"github.com/marmos91/regionlock/pkg/regionlock"
	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// activeConfig is the configuration loaded by the root command's
// PersistentPreRun, available to every subcommand's RunE.
var activeConfig *config.Config

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "rlockctl",
	Short: "Inspect and exercise the regionlock shared lock table",
	Long: `rlockctl is a command-line harness for the regionlock core.

It attaches to a file's shared lock table the same way an embedding
process would, and lets you request, release, and inspect byte-range
locks from the shell. Each invocation is its own process, so two
concurrent rlockctl commands contend for the same segment exactly the
way two unrelated processes holding the same file open would.

Use "rlockctl [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cmdutil.Flags.Output, _ = cmd.Flags().GetString("output")
		cmdutil.Flags.NoColor, _ = cmd.Flags().GetBool("no-color")
		cmdutil.Flags.Verbose, _ = cmd.Flags().GetBool("verbose")
		cmdutil.Flags.ConfigPath, _ = cmd.Flags().GetString("config")

		cfg, err := config.Load(cmdutil.Flags.ConfigPath)
		if err != nil {
			return err
		}
		activeConfig = cfg

		level := cfg.Logging.Level
		if cmdutil.Flags.Verbose {
			level = "DEBUG"
		}
		if err := logger.Init(logger.Config{
			Level:  level,
			Format: cfg.Logging.Format,
			Output: cfg.Logging.Output,
		}); err != nil {
			return err
		}

		regionlock.SegmentDir = cfg.SegmentDir
		regionlock.SweepOnEveryOp = cfg.SweepOnEveryOp

		// Every invocation gets its own trace id so a scrape of logs from
		// several concurrent rlockctl processes against one segment can be
		// correlated back to the command that produced each line.
		lc := logger.NewLogContext(os.Getpid()).WithTrace(uuid.NewString(), "").WithOp(cmd.Name())
		cmd.SetContext(logger.WithContext(cmd.Context(), lc))
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringP("output", "o", "table", "Output format (table|json|yaml)")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose (debug) logging")
	rootCmd.PersistentFlags().String("config", "", "Path to a config file (default: $XDG_CONFIG_HOME/rlockctl/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(completionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(lockCmd)
	rootCmd.AddCommand(unlockCmd)
	rootCmd.AddCommand(inspectCmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// PrintErr prints an error message to stderr.
func PrintErr(format string, args ...any) {
	rootCmd.PrintErrf(format+"\n", args...)
}

// Exit prints an error and exits with code 1.
func Exit(format string, args ...any) {
	PrintErr(format, args...)
	os.Exit(1)
}
