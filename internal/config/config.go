package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/dshills/cardmark/internal/cardid"
	"github.com/dshills/cardmark/internal/redact"
)

// Config represents the cardmark configuration.
type Config struct {
	AlertLabel        string             `json:"alertLabel"`
	NoticeLabel       string             `json:"noticeLabel"`
	CheckLevel        int                `json:"checkLevel"`
	ThresholdAlert    *float64           `json:"thresholdAlert,omitempty"`
	ThresholdNotice   *float64           `json:"thresholdNotice,omitempty"`
	MaxFragmentLength int                `json:"maxFragmentLength"`
	MinFragmentLength int                `json:"minFragmentLength"`
	Weights           map[string]float64 `json:"weights,omitempty"`
	ConstantsFile     string             `json:"constantsFile,omitempty"`
	Notices           bool               `json:"notices"`
	Format            string             `json:"format"`
	FailOn            string             `json:"failOn"`
	Workers           int                `json:"workers"`
	Exclude           []string           `json:"exclude"`
	MaskKeep          *int               `json:"maskKeep,omitempty"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		AlertLabel:        cardid.DefaultAlertLabel,
		NoticeLabel:       cardid.DefaultNoticeLabel,
		CheckLevel:        int(cardid.DefaultLevel),
		MaxFragmentLength: cardid.DefaultMaxFragmentLength,
		MinFragmentLength: cardid.DefaultMinFragmentLength,
		Format:            "text",
		FailOn:            "alert",
		Workers:           runtime.NumCPU(),
		Exclude:           []string{"**/*.lock", "**/go.sum", "vendor/*"},
		MaskKeep:          intPtr(redact.DefaultKeep),
	}
}

func intPtr(n int) *int { return &n }

// MaskDigits returns how many trailing digits masked output keeps.
func (c Config) MaskDigits() int {
	if c.MaskKeep == nil {
		return redact.DefaultKeep
	}
	return *c.MaskKeep
}

// ConfigDir returns the platform-appropriate config directory for cardmark.
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "cardmark"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "cardmark"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "cardmark"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "cardmark"), nil
	default:
		return filepath.Join(home, ".config", "cardmark"), nil
	}
}

// ConfigPath returns the full path to the config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// LoadFile loads config from the config file. Returns zero Config and nil error if file doesn't exist.
func LoadFile() (Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return Config{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// Save writes the config to the config file.
func Save(cfg Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Load builds the effective config by merging: defaults <- file <- env <- overrides.
// The overrides map comes from CLI flags (only non-zero values should be set).
func Load(overrides map[string]string) (Config, error) {
	cfg, err := LoadSaved()
	if err != nil {
		return Config{}, err
	}
	if err := mergeEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := mergeOverrides(&cfg, overrides); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadSaved returns the defaults overlaid with the config file only. The
// environment and flag layers are left out, so the result is safe to Save.
func LoadSaved() (Config, error) {
	cfg := Default()
	fileCfg, err := LoadFile()
	if err != nil {
		return Config{}, err
	}
	mergeFile(&cfg, fileCfg)
	return cfg, nil
}

func mergeFile(dst *Config, src Config) {
	if src.AlertLabel != "" {
		dst.AlertLabel = src.AlertLabel
	}
	if src.NoticeLabel != "" {
		dst.NoticeLabel = src.NoticeLabel
	}
	if src.CheckLevel > 0 {
		dst.CheckLevel = src.CheckLevel
	}
	if src.ThresholdAlert != nil {
		dst.ThresholdAlert = src.ThresholdAlert
	}
	if src.ThresholdNotice != nil {
		dst.ThresholdNotice = src.ThresholdNotice
	}
	if src.MaxFragmentLength > 0 {
		dst.MaxFragmentLength = src.MaxFragmentLength
	}
	if src.MinFragmentLength > 0 {
		dst.MinFragmentLength = src.MinFragmentLength
	}
	if len(src.Weights) > 0 {
		dst.Weights = src.Weights
	}
	if src.ConstantsFile != "" {
		dst.ConstantsFile = src.ConstantsFile
	}
	if src.Format != "" {
		dst.Format = src.Format
	}
	if src.FailOn != "" {
		dst.FailOn = src.FailOn
	}
	if src.Workers > 0 {
		dst.Workers = src.Workers
	}
	if len(src.Exclude) > 0 {
		dst.Exclude = src.Exclude
	}
	if src.MaskKeep != nil {
		dst.MaskKeep = src.MaskKeep
	}
	// JSON cannot tell an absent bool from false; a file can only turn
	// notices on.
	dst.Notices = src.Notices || dst.Notices
}

var envKeys = map[string]string{
	"CARDMARK_ALERT_LABEL":         "alertLabel",
	"CARDMARK_NOTICE_LABEL":        "noticeLabel",
	"CARDMARK_CHECK_LEVEL":         "checkLevel",
	"CARDMARK_THRESHOLD_ALERT":     "thresholdAlert",
	"CARDMARK_THRESHOLD_NOTICE":    "thresholdNotice",
	"CARDMARK_MAX_FRAGMENT_LENGTH": "maxFragmentLength",
	"CARDMARK_MIN_FRAGMENT_LENGTH": "minFragmentLength",
	"CARDMARK_CONSTANTS_FILE":      "constantsFile",
	"CARDMARK_NOTICES":             "notices",
	"CARDMARK_FORMAT":              "format",
	"CARDMARK_FAIL_ON":             "failOn",
	"CARDMARK_WORKERS":             "workers",
	"CARDMARK_MASK_KEEP":           "maskKeep",
}

func mergeEnv(cfg *Config) error {
	for env, key := range envKeys {
		v := os.Getenv(env)
		if v == "" {
			continue
		}
		if err := SetField(cfg, key, v); err != nil {
			return fmt.Errorf("%s: %w", env, err)
		}
	}
	return nil
}

func mergeOverrides(cfg *Config, overrides map[string]string) error {
	for k, v := range overrides {
		if v == "" {
			continue
		}
		if err := SetField(cfg, k, v); err != nil {
			return fmt.Errorf("flag %s: %w", k, err)
		}
	}
	return nil
}

// SetField sets a single config field by key name. Returns error if key is unknown.
// Weights are addressed as "weights.<KEY>"; thresholds accept "none" to unset.
func SetField(cfg *Config, key, value string) error {
	if name, ok := strings.CutPrefix(key, "weights."); ok {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%s must be a number: %w", key, err)
		}
		if _, err := cardid.DefaultWeights().With(map[string]float64{name: f}); err != nil {
			return err
		}
		if cfg.Weights == nil {
			cfg.Weights = make(map[string]float64)
		}
		cfg.Weights[name] = f
		return nil
	}

	switch key {
	case "alertLabel":
		cfg.AlertLabel = value
	case "noticeLabel":
		cfg.NoticeLabel = value
	case "checkLevel":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("checkLevel must be an integer: %w", err)
		}
		cfg.CheckLevel = n
	case "thresholdAlert":
		t, err := parseThreshold(key, value)
		if err != nil {
			return err
		}
		cfg.ThresholdAlert = t
	case "thresholdNotice":
		t, err := parseThreshold(key, value)
		if err != nil {
			return err
		}
		cfg.ThresholdNotice = t
	case "maxFragmentLength":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("maxFragmentLength must be an integer: %w", err)
		}
		cfg.MaxFragmentLength = n
	case "minFragmentLength":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("minFragmentLength must be an integer: %w", err)
		}
		cfg.MinFragmentLength = n
	case "constantsFile":
		cfg.ConstantsFile = value
	case "notices":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("notices must be a boolean: %w", err)
		}
		cfg.Notices = b
	case "format":
		cfg.Format = value
	case "failOn":
		cfg.FailOn = value
	case "workers":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("workers must be an integer: %w", err)
		}
		cfg.Workers = n
	case "exclude":
		cfg.Exclude = splitComma(value)
	case "maskKeep":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("maskKeep must be an integer: %w", err)
		}
		if n < 0 {
			return fmt.Errorf("maskKeep must not be negative, got %d", n)
		}
		cfg.MaskKeep = &n
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}

func parseThreshold(key, value string) (*float64, error) {
	if value == "none" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("%s must be a number or \"none\": %w", key, err)
	}
	return &f, nil
}

func splitComma(s string) []string {
	var result []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// Validate checks value ranges that cannot be expressed in the types.
func (c Config) Validate() error {
	if c.CheckLevel != int(cardid.LevelStrict) && c.CheckLevel != int(cardid.LevelLoose) {
		return fmt.Errorf("checkLevel must be 1 or 2, got %d", c.CheckLevel)
	}
	if c.MinFragmentLength > c.MaxFragmentLength {
		return fmt.Errorf("minFragmentLength %d exceeds maxFragmentLength %d", c.MinFragmentLength, c.MaxFragmentLength)
	}
	switch c.Format {
	case "text", "json", "markdown", "sarif":
	default:
		return fmt.Errorf("unsupported output format: %s", c.Format)
	}
	switch c.FailOn {
	case "none", "notice", "alert":
	default:
		return fmt.Errorf("failOn must be none, notice or alert, got %q", c.FailOn)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if _, err := cardid.DefaultWeights().With(c.Weights); err != nil {
		return err
	}
	return nil
}

// IdentifierOptions translates the config into detector options. The
// constants file, if any, is loaded here.
func (c Config) IdentifierOptions() (cardid.Options, error) {
	constants, err := cardid.LoadConstants(c.ConstantsFile)
	if err != nil {
		return cardid.Options{}, err
	}
	weights, err := cardid.DefaultWeights().With(c.Weights)
	if err != nil {
		return cardid.Options{}, err
	}
	return cardid.Options{
		AlertLabel:        c.AlertLabel,
		NoticeLabel:       c.NoticeLabel,
		Level:             cardid.Level(c.CheckLevel),
		ThresholdAlert:    cardid.ThresholdFrom(c.ThresholdAlert),
		ThresholdNotice:   cardid.ThresholdFrom(c.ThresholdNotice),
		MaxFragmentLength: c.MaxFragmentLength,
		MinFragmentLength: c.MinFragmentLength,
		Weights:           &weights,
		Constants:         constants,
	}, nil
}
