// Package cli wires together the Cobra command tree for the cardmark binary.
//
// It defines the root command and all subcommands (scan, diff, score,
// config, hook, version), binds flags, reads configuration, runs the
// detector, and returns deterministic exit codes for CI gating.
package cli
