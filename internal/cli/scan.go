package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/cardmark/internal/cardid"
	"github.com/dshills/cardmark/internal/config"
	"github.com/dshills/cardmark/internal/metrics"
	"github.com/dshills/cardmark/internal/output"
	"github.com/dshills/cardmark/internal/scan"
)

// Shared scan flags
var (
	flagMode            string
	flagNotices         bool
	flagFormat          string
	flagOut             string
	flagFailOn          string
	flagExclude         string
	flagWorkers         int
	flagLevel           int
	flagThresholdAlert  string
	flagThresholdNotice string
	flagConstants       string
	flagMetricsFile     string
)

func addScanFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&flagNotices, "notices", false, "Also mark lower-confidence candidates with the notice label")
	cmd.Flags().StringVar(&flagFormat, "format", "", "Report format (text, json, markdown, sarif)")
	cmd.Flags().StringVar(&flagOut, "out", "", "Output file path (default: stdout)")
	cmd.Flags().StringVar(&flagFailOn, "fail-on", "", "Exit 1 when findings reach this tier (none, notice, alert)")
	cmd.Flags().StringVar(&flagExclude, "exclude", "", "Exclude file path globs (comma-separated)")
	cmd.Flags().IntVar(&flagLevel, "level", 0, "Fragment level: 1 strict digit runs, 2 loose separated groups")
	cmd.Flags().StringVar(&flagThresholdAlert, "threshold-alert", "", "Alert threshold, or \"none\"")
	cmd.Flags().StringVar(&flagThresholdNotice, "threshold-notice", "", "Notice threshold, or \"none\"")
	cmd.Flags().StringVar(&flagConstants, "constants", "", "YAML file overriding the detection constants")
	cmd.Flags().StringVar(&flagMetricsFile, "metrics-file", "", "Write Prometheus metrics in textfile format to this path")
}

func buildOverrides() map[string]string {
	m := make(map[string]string)
	if flagNotices {
		m["notices"] = "true"
	}
	if flagFormat != "" {
		m["format"] = flagFormat
	}
	if flagFailOn != "" {
		m["failOn"] = flagFailOn
	}
	if flagWorkers > 0 {
		m["workers"] = strconv.Itoa(flagWorkers)
	}
	if flagLevel > 0 {
		m["checkLevel"] = strconv.Itoa(flagLevel)
	}
	if flagThresholdAlert != "" {
		m["thresholdAlert"] = flagThresholdAlert
	}
	if flagThresholdNotice != "" {
		m["thresholdNotice"] = flagThresholdNotice
	}
	if flagConstants != "" {
		m["constantsFile"] = flagConstants
	}
	return m
}

func splitComma(s string) []string {
	parts := strings.Split(s, ",")
	var result []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// excludes returns the configured exclude globs plus any given by flag.
func excludes(cfg config.Config) []string {
	out := append([]string(nil), cfg.Exclude...)
	if flagExclude != "" {
		out = append(out, splitComma(flagExclude)...)
	}
	return out
}

// newScanner builds a scanner from the effective config. The returned
// registry is nil unless a metrics file was requested.
func newScanner(cfg config.Config) (*scan.Scanner, *prometheus.Registry, error) {
	opts, err := cfg.IdentifierOptions()
	if err != nil {
		return nil, nil, err
	}

	var reg *prometheus.Registry
	var m *metrics.ScanMetrics
	if flagMetricsFile != "" {
		reg = prometheus.NewRegistry()
		m = metrics.NewScanMetrics(reg)
	}
	opts.Logger = logger
	opts.Metrics = m

	return scan.New(scan.Options{
		Identifier: cardid.New(opts),
		Notices:    cfg.Notices,
		Workers:    cfg.Workers,
		Exclude:    excludes(cfg),
		MaskKeep:   cfg.MaskDigits(),
		Logger:     logger,
		Metrics:    m,
	}), reg, nil
}

// openOut returns the destination for command output and a function that
// closes it.
func openOut(cmd *cobra.Command) (io.Writer, func() error, error) {
	if flagOut == "" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(flagOut)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output file: %w", err)
	}
	return f, f.Close, nil
}

// failOnExceeded reports whether the report has findings at or above the
// failOn tier.
func failOnExceeded(report *scan.Report, failOn string) bool {
	switch failOn {
	case "alert":
		return report.Count(cardid.TierAlert) > 0
	case "notice":
		return report.Count(cardid.TierNotice) > 0
	default:
		return false
	}
}

// finish writes the report, the optional metrics file and sets the exit code.
func finish(cmd *cobra.Command, report *scan.Report, cfg config.Config, reg *prometheus.Registry, write func(io.Writer) error) {
	report.Version = version
	logger.Info("scan complete",
		zap.String("id", report.ID),
		zap.Int("inputs", report.Summary.Inputs),
		zap.Int("alerts", report.Summary.Alerts),
		zap.Int("notices", report.Summary.Notices))

	w, closeOut, err := openOut(cmd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitCode = ExitRuntimeError
		return
	}
	if err := write(w); err != nil {
		closeOut()
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		exitCode = ExitRuntimeError
		return
	}
	if err := closeOut(); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		exitCode = ExitRuntimeError
		return
	}

	if reg != nil {
		if err := metrics.WriteTextfile(flagMetricsFile, reg); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing metrics: %v\n", err)
			exitCode = ExitRuntimeError
			return
		}
	}

	if failOnExceeded(report, cfg.FailOn) {
		exitCode = ExitFindings
	}
}

func reportWriter(report *scan.Report, format string) func(io.Writer) error {
	return func(w io.Writer) error {
		writer, err := output.GetWriter(format)
		if err != nil {
			return err
		}
		return writer.Write(w, report)
	}
}

// textWriter writes the annotated or masked text of every scanned input.
// Multiple inputs are separated by a header naming the path.
func textWriter(report *scan.Report, mode string) func(io.Writer) error {
	return func(w io.Writer) error {
		scanned := 0
		for _, res := range report.Results {
			if !res.Skipped {
				scanned++
			}
		}
		for _, res := range report.Results {
			if res.Skipped {
				continue
			}
			if scanned > 1 {
				if _, err := fmt.Fprintf(w, "==> %s <==\n", res.Path); err != nil {
					return err
				}
			}
			text := res.Annotated
			if mode == "mask" {
				text = res.Masked
			}
			if _, err := io.WriteString(w, text); err != nil {
				return err
			}
		}
		return nil
	}
}

var scanCmd = &cobra.Command{
	Use:   "scan [files...]",
	Short: "Scan files or standard input for card numbers",
	Long: "Scan files (or standard input when no files are given). " +
		"--mode annotate prints the text with marks, mask prints it with digits masked, " +
		"report prints findings in the chosen --format.",
	RunE: func(cmd *cobra.Command, args []string) error {
		switch flagMode {
		case "annotate", "mask", "report":
		default:
			return fmt.Errorf("unsupported mode %q (want annotate, mask or report)", flagMode)
		}

		cfg, err := config.Load(buildOverrides())
		if err != nil {
			return err
		}
		sc, reg, err := newScanner(cfg)
		if err != nil {
			return err
		}

		var report *scan.Report
		if len(args) == 0 {
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error reading stdin: %v\n", err)
				exitCode = ExitRuntimeError
				return nil
			}
			report = sc.ScanStdin(string(data))
		} else {
			report, err = sc.ScanFiles(cmd.Context(), args)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				exitCode = ExitRuntimeError
				return nil
			}
		}

		write := reportWriter(report, cfg.Format)
		if flagMode != "report" {
			write = textWriter(report, flagMode)
		}
		finish(cmd, report, cfg, reg, write)
		return nil
	},
}

func init() {
	addScanFlags(scanCmd)
	scanCmd.Flags().StringVar(&flagMode, "mode", "annotate", "Output mode (annotate, mask, report)")
	scanCmd.Flags().IntVar(&flagWorkers, "workers", 0, "Number of files scanned concurrently (default: config or CPU count)")
}
