package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/cardmark/internal/config"
	"github.com/dshills/cardmark/internal/gitctx"
)

var flagMergeBase bool

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Scan lines added by git changes",
	Long:  "Scan only the lines a git change adds. Use subcommands to choose which change.",
}

// runDiff scans the lines added by the diff that collect returns.
func runDiff(cmd *cobra.Command, source string, collect func(gitctx.DiffOptions) (gitctx.DiffResult, error)) error {
	cfg, err := config.Load(buildOverrides())
	if err != nil {
		return err
	}
	sc, reg, err := newScanner(cfg)
	if err != nil {
		return err
	}

	diff, err := collect(gitctx.DiffOptions{Exclude: excludes(cfg)})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitCode = ExitRuntimeError
		return nil
	}

	report, err := sc.ScanDiff(cmd.Context(), source, gitctx.AddedLines(diff.Diff))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitCode = ExitRuntimeError
		return nil
	}
	finish(cmd, report, cfg, reg, reportWriter(report, cfg.Format))
	return nil
}

var diffUnstagedCmd = &cobra.Command{
	Use:   "unstaged",
	Short: "Scan unstaged changes (working tree vs index)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDiff(cmd, "unstaged", gitctx.Unstaged)
	},
}

var diffStagedCmd = &cobra.Command{
	Use:   "staged",
	Short: "Scan staged changes (index vs HEAD)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDiff(cmd, "staged", gitctx.Staged)
	},
}

var diffCommitCmd = &cobra.Command{
	Use:   "commit <sha>",
	Short: "Scan the lines added by a single commit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDiff(cmd, "commit", func(opts gitctx.DiffOptions) (gitctx.DiffResult, error) {
			return gitctx.Commit(args[0], opts)
		})
	},
}

var diffRangeCmd = &cobra.Command{
	Use:   "range <revRange>",
	Short: "Scan a revision range (e.g., origin/main..HEAD)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDiff(cmd, "range", func(opts gitctx.DiffOptions) (gitctx.DiffResult, error) {
			return gitctx.Range(args[0], flagMergeBase, opts)
		})
	},
}

func init() {
	diffCmd.AddCommand(diffUnstagedCmd)
	diffCmd.AddCommand(diffStagedCmd)
	diffCmd.AddCommand(diffCommitCmd)
	diffCmd.AddCommand(diffRangeCmd)

	for _, cmd := range []*cobra.Command{
		diffUnstagedCmd,
		diffStagedCmd,
		diffCommitCmd,
		diffRangeCmd,
	} {
		addScanFlags(cmd)
	}

	diffRangeCmd.Flags().BoolVar(&flagMergeBase, "merge-base", true, "Use merge base for branch comparisons")
}
