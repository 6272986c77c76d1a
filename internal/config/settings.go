package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml"
	"gopkg.in/yaml.v3"
)

// Settings are user preferences persisted between runs. The file format is
// chosen by extension: .toml, .yaml/.yml or .json.
type Settings struct {
	// Budget is the yearly budget compared against projected cost. Zero means unset.
	Budget            float64 `json:"budget" yaml:"budget" toml:"budget"`
	SubscriptionGroup string  `json:"subscription_group" yaml:"subscription_group" toml:"subscription_group"`
	AggregatePeriod   string  `json:"aggregate_period" yaml:"aggregate_period" toml:"aggregate_period"`
	ReportDir         string  `json:"report_dir" yaml:"report_dir" toml:"report_dir"`
}

// DefaultSettings returns the settings used when no file exists.
func DefaultSettings() Settings {
	return Settings{
		SubscriptionGroup: "All",
		AggregatePeriod:   "YTD",
		ReportDir:         ".",
	}
}

// LoadSettings reads the settings file at path. A missing file yields defaults.
func LoadSettings(path string) (Settings, error) {
	settings := DefaultSettings()

	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return settings, nil
	}
	if err != nil {
		return settings, fmt.Errorf("error accessing settings file: %w", err)
	}
	if info.IsDir() {
		return settings, fmt.Errorf("%s is a directory, not a file", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return settings, fmt.Errorf("error reading settings file: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return settings, nil
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		err = toml.Unmarshal(data, &settings)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &settings)
	case ".json":
		err = json.Unmarshal(data, &settings)
	default:
		return settings, fmt.Errorf("unsupported settings file format: %s", ext)
	}
	if err != nil {
		return DefaultSettings(), fmt.Errorf("error parsing settings file %s: %w", path, err)
	}

	if settings.SubscriptionGroup == "" {
		settings.SubscriptionGroup = "All"
	}
	if settings.AggregatePeriod == "" {
		settings.AggregatePeriod = "YTD"
	}
	return settings, nil
}

// SaveSettings writes settings to path in the format implied by its extension.
func SaveSettings(path string, settings Settings) error {
	var (
		data []byte
		err  error
	)

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		data, err = toml.Marshal(settings)
	case ".yaml", ".yml":
		data, err = yaml.Marshal(settings)
	case ".json":
		data, err = json.MarshalIndent(settings, "", "  ")
	default:
		return fmt.Errorf("unsupported settings file format: %s", ext)
	}
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	if err := ensureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace settings: %w", err)
	}
	return nil
}
