package cli

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const version = "0.1.0"

// Process exit codes.
const (
	ExitSuccess      = 0
	ExitFindings     = 1
	ExitUsageError   = 2
	ExitRuntimeError = 4
)

var (
	flagVerbose bool
	flagEnvFile string
)

// logger is replaced by the root command before any subcommand runs.
var logger = zap.NewNop()

var rootCmd = &cobra.Command{
	Use:   "cardmark",
	Short: "Find and mark credit card numbers in text",
	Long: "cardmark scans files, standard input and git diffs for substrings that look like " +
		"payment card numbers, scores them, and marks, masks or reports them.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadEnvFile(flagEnvFile); err != nil {
			return err
		}
		l, err := newLogger(flagVerbose)
		if err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// Run executes the root command and returns an exit code.
func Run() int {
	exitCode = ExitSuccess
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error
		return ExitUsageError
	}
	return exitCode
}

// exitCode is set by command handlers to control the process exit code.
var exitCode = ExitSuccess

func newLogger(verbose bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	config.OutputPaths = []string{"stderr"}
	return config.Build()
}

// loadEnvFile seeds the environment from a dotenv file. A missing file is
// not an error; variables already set are left alone.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print cardmark version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "cardmark version %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagEnvFile, "env-file", ".env", "Dotenv file to load before reading CARDMARK_* variables")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(hookCmd)
	rootCmd.AddCommand(versionCmd)
}
