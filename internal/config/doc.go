// Package config loads and merges cardmark configuration from multiple sources.
//
// Precedence (highest to lowest):
//  1. CLI flags
//  2. Environment variables (CARDMARK_CHECK_LEVEL, CARDMARK_THRESHOLD_ALERT, etc.),
//     optionally seeded from a .env file by the CLI
//  3. Config file ($XDG_CONFIG_HOME/cardmark/config.json)
//  4. Built-in defaults
//
// Use [Load] to obtain a merged [Config], [Save] to write a config file, and
// [SetField] to update a single key. [Config.IdentifierOptions] turns a
// Config into detector options.
package config
