// Package config defines the run configuration records for a measurement
// run: one manager-level record for harness-wide settings and one record
// per simulated browser participant.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Display modes for a browser instance.
const (
	DisplayNative   = "native"
	DisplayHeadless = "headless"
	DisplayXvfb     = "xvfb"
)

// Tor security slider settings, lowest to highest.
const (
	SliderStandard = "standard"
	SliderSafer    = "safer"
	SliderSafest   = "safest"
)

// ManagerConfig holds harness-wide settings shared across all browser
// instances in a run.
type ManagerConfig struct {
	// DataDirectory is where crawl output is written
	DataDirectory string `yaml:"data_directory" json:"data_directory"`

	// LogPath is the harness log file location
	LogPath string `yaml:"log_path" json:"log_path"`

	// NumBrowsers is the number of browser instances in the run
	NumBrowsers int `yaml:"num_browsers" json:"num_browsers"`

	// FailureLimit is the number of consecutive command failures
	// tolerated before the run is aborted
	FailureLimit int `yaml:"failure_limit" json:"failure_limit"`

	// TestingMode relaxes timeouts for local debugging
	TestingMode bool `yaml:"testing_mode" json:"testing_mode"`
}

// BrowserConfig holds per-instance settings for one simulated browser
// participant in a run. SeedTar and ProfileArchiveDir are nil when no
// input profile / output archive was requested.
type BrowserConfig struct {
	BrowserID string `yaml:"browser_id" json:"browser_id"`

	// SeedTar is a profile archive to load before the run, if any
	SeedTar *string `yaml:"seed_tar" json:"seed_tar"`

	// ProfileArchiveDir is where the profile is archived after the
	// run, if anywhere
	ProfileArchiveDir *string `yaml:"profile_archive_dir" json:"profile_archive_dir"`

	// CleanedJSInstrumentSettings is the normalized form of
	// JSInstrumentRules, produced by CleanJSInstrumentSettings
	CleanedJSInstrumentSettings map[string]any `yaml:"cleaned_js_instrument_settings" json:"cleaned_js_instrument_settings"`

	// JSInstrumentRules is the raw instrumentation configuration as
	// written by the user; not part of the report surface
	JSInstrumentRules []JSInstrumentRule `yaml:"js_instrument_rules,omitempty" json:"-"`

	DisplayMode          string `yaml:"display_mode" json:"display_mode"`
	TorMode              bool   `yaml:"tor_mode" json:"tor_mode"`
	SliderSetting        string `yaml:"slider_setting" json:"slider_setting"`
	BotMitigation        bool   `yaml:"bot_mitigation" json:"bot_mitigation"`
	HTTPInstrument       bool   `yaml:"http_instrument" json:"http_instrument"`
	JSInstrument         bool   `yaml:"js_instrument" json:"js_instrument"`
	NavigationInstrument bool   `yaml:"navigation_instrument" json:"navigation_instrument"`
	SaveContent          bool   `yaml:"save_content" json:"save_content"`
}

// RunConfig is the top-level yaml document for a run: one manager record
// plus one record per browser.
type RunConfig struct {
	Manager  ManagerConfig   `yaml:"manager"`
	Browsers []BrowserConfig `yaml:"browsers"`
}

// DefaultManagerConfig returns manager settings suitable for most runs.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		DataDirectory: "./datadir",
		LogPath:       "./datadir/webprobe.log",
		NumBrowsers:   1,
		FailureLimit:  10,
	}
}

// DefaultBrowserConfig returns browser settings suitable for most runs,
// with a freshly generated browser id.
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{
		BrowserID:                   fmt.Sprintf("browser-%s", uuid.New().String()[:8]),
		CleanedJSInstrumentSettings: map[string]any{},
		DisplayMode:                 DisplayNative,
		SliderSetting:               SliderStandard,
		HTTPInstrument:              true,
		NavigationInstrument:        true,
	}
}

// Validate checks manager settings for values that would make a run
// unworkable.
func (c *ManagerConfig) Validate() error {
	if c.DataDirectory == "" {
		return fmt.Errorf("data directory is required")
	}

	if c.NumBrowsers < 1 {
		return fmt.Errorf("num_browsers must be at least 1")
	}

	if c.FailureLimit < 0 {
		return fmt.Errorf("failure_limit cannot be negative")
	}

	return nil
}

// Validate checks per-browser settings.
func (c *BrowserConfig) Validate() error {
	if c.BrowserID == "" {
		return fmt.Errorf("browser_id is required")
	}

	switch c.DisplayMode {
	case DisplayNative, DisplayHeadless, DisplayXvfb:
	default:
		return fmt.Errorf("invalid display_mode: %s (must be 'native', 'headless' or 'xvfb')", c.DisplayMode)
	}

	switch c.SliderSetting {
	case SliderStandard, SliderSafer, SliderSafest:
	default:
		return fmt.Errorf("invalid slider_setting: %s (must be 'standard', 'safer' or 'safest')", c.SliderSetting)
	}

	if c.SliderSetting != SliderStandard && !c.TorMode {
		return fmt.Errorf("slider_setting %q requires tor_mode", c.SliderSetting)
	}

	return nil
}

// Validate checks the whole run configuration, including that browser
// ids are unique within the run.
func (c *RunConfig) Validate() error {
	if err := c.Manager.Validate(); err != nil {
		return fmt.Errorf("manager config: %w", err)
	}

	if len(c.Browsers) == 0 {
		return fmt.Errorf("at least one browser configuration is required")
	}

	seen := make(map[string]bool, len(c.Browsers))
	for i := range c.Browsers {
		b := &c.Browsers[i]
		if err := b.Validate(); err != nil {
			return fmt.Errorf("browser config %d: %w", i, err)
		}
		if seen[b.BrowserID] {
			return fmt.Errorf("duplicate browser_id: %s", b.BrowserID)
		}
		seen[b.BrowserID] = true
	}

	return nil
}

// LoadRunConfig reads and validates a run configuration from a YAML
// file. Browser entries are filled from DefaultBrowserConfig before
// decoding so omitted fields take their defaults, and raw instrument
// rules are cleaned into the reportable settings map.
func LoadRunConfig(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var raw struct {
		Manager  ManagerConfig `yaml:"manager"`
		Browsers []yaml.Node   `yaml:"browsers"`
	}
	raw.Manager = DefaultManagerConfig()
	if unmarshalErr := yaml.Unmarshal(data, &raw); unmarshalErr != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", unmarshalErr)
	}

	config := &RunConfig{Manager: raw.Manager}
	for i, node := range raw.Browsers {
		browser := DefaultBrowserConfig()
		if decodeErr := node.Decode(&browser); decodeErr != nil {
			return nil, fmt.Errorf("failed to parse browser config %d: %w", i, decodeErr)
		}

		if len(browser.JSInstrumentRules) > 0 {
			cleaned, cleanErr := CleanJSInstrumentSettings(browser.JSInstrumentRules)
			if cleanErr != nil {
				return nil, fmt.Errorf("browser config %d: %w", i, cleanErr)
			}
			browser.CleanedJSInstrumentSettings = cleaned
		}

		config.Browsers = append(config.Browsers, browser)
	}

	if len(config.Browsers) > 0 {
		config.Manager.NumBrowsers = len(config.Browsers)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// ToMap flattens the manager record into the key/value form consumed by
// the configuration report.
func (c *ManagerConfig) ToMap() map[string]any {
	return structToMap(c)
}

// ToMap flattens the browser record into the key/value form consumed by
// the configuration report.
func (c *BrowserConfig) ToMap() map[string]any {
	return structToMap(c)
}

// structToMap round-trips a config struct through its json tags. Config
// structs only hold json-marshalable fields, so failures here indicate
// a programming error.
func structToMap(v any) map[string]any {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("config: unmarshalable config struct: %v", err))
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		panic(fmt.Sprintf("config: round-trip failed: %v", err))
	}
	return m
}
