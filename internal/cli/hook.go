package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

const (
	hookMarkerStart = "# >>> cardmark pre-commit hook >>>"
	hookMarkerEnd   = "# <<< cardmark pre-commit hook <<<"
)

// hookOptions are the `cardmark diff staged` settings baked into the hook.
type hookOptions struct {
	FailOn  string
	Format  string
	Notices bool
}

var hookFlags hookOptions

func (o hookOptions) validate() error {
	switch o.FailOn {
	case "alert", "notice":
	default:
		return fmt.Errorf("--fail-on must be alert or notice for a hook, got %q", o.FailOn)
	}
	switch o.Format {
	case "text", "json", "markdown", "sarif":
	default:
		return fmt.Errorf("unsupported output format: %s", o.Format)
	}
	return nil
}

// diffArgs returns the flags passed to cardmark diff. Blocking on the notice
// tier needs notice detection, so it implies --notices.
func (o hookOptions) diffArgs() string {
	args := fmt.Sprintf("--fail-on %s --format %s", o.FailOn, o.Format)
	if o.Notices || o.FailOn == "notice" {
		args += " --notices"
	}
	return args
}

// blockedTiers describes which findings stop the commit.
func (o hookOptions) blockedTiers() string {
	if o.FailOn == "notice" {
		return "notice- or alert-tier"
	}
	return "alert-tier"
}

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Manage the git pre-commit hook that blocks staged card numbers",
}

var hookInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Install cardmark as a git pre-commit hook",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := hookFlags.validate(); err != nil {
			return err
		}
		hookPath, err := getHookPath()
		if err != nil {
			return hookFailure(cmd, err)
		}
		if err := installHook(hookPath, generateHookScript(hookFlags)); err != nil {
			return hookFailure(cmd, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Installed cardmark pre-commit hook at %s (blocks %s card numbers)\n",
			hookPath, hookFlags.blockedTiers())
		return nil
	},
}

var hookUninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the cardmark pre-commit hook",
	RunE: func(cmd *cobra.Command, args []string) error {
		hookPath, err := getHookPath()
		if err != nil {
			return hookFailure(cmd, err)
		}
		removed, err := uninstallHook(hookPath)
		if err != nil {
			return hookFailure(cmd, err)
		}
		switch removed {
		case hookNotFound:
			fmt.Fprintln(cmd.OutOrStdout(), "No cardmark pre-commit hook found.")
		case hookFileRemoved:
			fmt.Fprintf(cmd.OutOrStdout(), "Removed cardmark pre-commit hook at %s\n", hookPath)
		default:
			fmt.Fprintf(cmd.OutOrStdout(), "Removed cardmark section from %s\n", hookPath)
		}
		return nil
	},
}

// hookFailure reports an environment problem and exits with the runtime code.
func hookFailure(cmd *cobra.Command, err error) error {
	fmt.Fprintf(cmd.ErrOrStderr(), "cardmark hook: %v\n", err)
	exitCode = ExitRuntimeError
	return nil
}

func getHookPath() (string, error) {
	out, err := exec.Command("git", "rev-parse", "--git-dir").Output()
	if err != nil {
		return "", errors.New("not a git repository (git rev-parse --git-dir failed)")
	}
	gitDir := strings.TrimSpace(string(out))
	return filepath.Join(gitDir, "hooks", "pre-commit"), nil
}

// installHook writes section into the hook at path, replacing an earlier
// cardmark section and keeping any other hook content.
func installHook(path, section string) error {
	existing, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("reading hook file: %w", err)
	}

	content := "#!/bin/sh\n" + section
	if len(existing) > 0 {
		content = replaceHookSection(string(existing), section)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating hooks directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o755); err != nil {
		return fmt.Errorf("writing hook file: %w", err)
	}
	return nil
}

type hookRemoval int

const (
	hookNotFound hookRemoval = iota
	hookSectionRemoved
	hookFileRemoved
)

// uninstallHook strips the cardmark section from the hook at path. The file
// is deleted when nothing but a shebang is left.
func uninstallHook(path string) (hookRemoval, error) {
	existing, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return hookNotFound, nil
		}
		return hookNotFound, fmt.Errorf("reading hook file: %w", err)
	}
	if !strings.Contains(string(existing), hookMarkerStart) {
		return hookNotFound, nil
	}

	content := removeHookSection(string(existing))
	trimmed := strings.TrimSpace(content)
	if trimmed == "" || trimmed == "#!/bin/sh" || trimmed == "#!/bin/bash" {
		if err := os.Remove(path); err != nil {
			return hookNotFound, fmt.Errorf("removing hook file: %w", err)
		}
		return hookFileRemoved, nil
	}
	if err := os.WriteFile(path, []byte(content), 0o755); err != nil {
		return hookNotFound, fmt.Errorf("writing hook file: %w", err)
	}
	return hookSectionRemoved, nil
}

// generateHookScript renders the hook section. cardmark diff exits 1 when a
// staged line holds a finding at the blocking tier; any higher code means the
// scan itself failed and the commit goes through unchecked.
func generateHookScript(o hookOptions) string {
	tiers := o.blockedTiers()
	var b strings.Builder
	b.WriteString(hookMarkerStart + "\n")
	fmt.Fprintf(&b, "# Blocks commits whose staged lines contain %s card numbers.\n", tiers)
	fmt.Fprintf(&b, "cardmark diff staged %s\n", o.diffArgs())
	b.WriteString("CARDMARK_EXIT=$?\n")
	b.WriteString("if [ $CARDMARK_EXIT -eq 1 ]; then\n")
	fmt.Fprintf(&b, "  echo \"cardmark: staged lines contain %s card numbers, commit blocked\" >&2\n", tiers)
	b.WriteString("  echo \"cardmark: mask them with 'cardmark scan --mode mask' or bypass with 'git commit --no-verify'\" >&2\n")
	b.WriteString("  exit 1\n")
	b.WriteString("elif [ $CARDMARK_EXIT -ne 0 ]; then\n")
	b.WriteString("  echo \"cardmark: scan failed (exit $CARDMARK_EXIT), commit not checked for card numbers\" >&2\n")
	b.WriteString("fi\n")
	b.WriteString(hookMarkerEnd + "\n")
	return b.String()
}

func replaceHookSection(existing, section string) string {
	startIdx := strings.Index(existing, hookMarkerStart)
	endIdx := strings.Index(existing, hookMarkerEnd)

	if startIdx == -1 || endIdx == -1 {
		if !strings.HasSuffix(existing, "\n") {
			existing += "\n"
		}
		return existing + section
	}

	after := strings.TrimPrefix(existing[endIdx+len(hookMarkerEnd):], "\n")
	return existing[:startIdx] + section + after
}

func removeHookSection(existing string) string {
	startIdx := strings.Index(existing, hookMarkerStart)
	endIdx := strings.Index(existing, hookMarkerEnd)

	if startIdx == -1 || endIdx == -1 {
		return existing
	}

	after := strings.TrimPrefix(existing[endIdx+len(hookMarkerEnd):], "\n")
	return existing[:startIdx] + after
}

func init() {
	hookCmd.AddCommand(hookInstallCmd)
	hookCmd.AddCommand(hookUninstallCmd)
	hookInstallCmd.Flags().StringVar(&hookFlags.FailOn, "fail-on", "alert", "Block the commit at this tier (notice, alert)")
	hookInstallCmd.Flags().StringVar(&hookFlags.Format, "format", "text", "Report format (text, json, markdown, sarif)")
	hookInstallCmd.Flags().BoolVar(&hookFlags.Notices, "notices", false, "Also report lower-confidence candidates")
}
