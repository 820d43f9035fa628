package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestDefaultManagerConfig(t *testing.T) {
	c := DefaultManagerConfig()

	assert.Equal(t, 1, c.NumBrowsers)
	assert.Equal(t, 10, c.FailureLimit)
	assert.NotEmpty(t, c.DataDirectory)
	assert.NoError(t, c.Validate())
}

func TestDefaultBrowserConfig(t *testing.T) {
	c := DefaultBrowserConfig()

	assert.NotEmpty(t, c.BrowserID)
	assert.Equal(t, DisplayNative, c.DisplayMode)
	assert.Equal(t, SliderStandard, c.SliderSetting)
	assert.Nil(t, c.SeedTar)
	assert.Nil(t, c.ProfileArchiveDir)
	assert.NotNil(t, c.CleanedJSInstrumentSettings)
	assert.NoError(t, c.Validate())

	// Generated ids must not collide across instances
	other := DefaultBrowserConfig()
	assert.NotEqual(t, c.BrowserID, other.BrowserID)
}

func TestManagerConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ManagerConfig)
		wantErr string
	}{
		{
			name:    "missing data directory",
			mutate:  func(c *ManagerConfig) { c.DataDirectory = "" },
			wantErr: "data directory is required",
		},
		{
			name:    "zero browsers",
			mutate:  func(c *ManagerConfig) { c.NumBrowsers = 0 },
			wantErr: "num_browsers must be at least 1",
		},
		{
			name:    "negative failure limit",
			mutate:  func(c *ManagerConfig) { c.FailureLimit = -1 },
			wantErr: "failure_limit cannot be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultManagerConfig()
			tt.mutate(&c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestBrowserConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*BrowserConfig)
		wantErr string
	}{
		{
			name:    "missing browser id",
			mutate:  func(c *BrowserConfig) { c.BrowserID = "" },
			wantErr: "browser_id is required",
		},
		{
			name:    "invalid display mode",
			mutate:  func(c *BrowserConfig) { c.DisplayMode = "windowed" },
			wantErr: "invalid display_mode",
		},
		{
			name:    "invalid slider setting",
			mutate:  func(c *BrowserConfig) { c.SliderSetting = "paranoid" },
			wantErr: "invalid slider_setting",
		},
		{
			name: "non-standard slider without tor",
			mutate: func(c *BrowserConfig) {
				c.SliderSetting = SliderSafest
				c.TorMode = false
			},
			wantErr: "requires tor_mode",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultBrowserConfig()
			tt.mutate(&c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRunConfig_Validate_NoBrowsers(t *testing.T) {
	c := &RunConfig{Manager: DefaultManagerConfig()}
	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one browser configuration is required")
}

func TestRunConfig_Validate_DuplicateBrowserID(t *testing.T) {
	b := DefaultBrowserConfig()
	b.BrowserID = "browser-0"
	c := &RunConfig{
		Manager:  DefaultManagerConfig(),
		Browsers: []BrowserConfig{b, b},
	}
	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate browser_id")
}

func TestLoadRunConfig(t *testing.T) {
	path := writeConfigFile(t, `
manager:
  data_directory: /tmp/crawl
  failure_limit: 3
browsers:
  - browser_id: browser-0
    seed_tar: /profiles/seed.tar
    display_mode: headless
  - browser_id: browser-1
    tor_mode: true
    slider_setting: safer
`)

	c, err := LoadRunConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/crawl", c.Manager.DataDirectory)
	assert.Equal(t, 3, c.Manager.FailureLimit)
	assert.Equal(t, 2, c.Manager.NumBrowsers)

	require.Len(t, c.Browsers, 2)
	assert.Equal(t, "browser-0", c.Browsers[0].BrowserID)
	require.NotNil(t, c.Browsers[0].SeedTar)
	assert.Equal(t, "/profiles/seed.tar", *c.Browsers[0].SeedTar)
	assert.Equal(t, DisplayHeadless, c.Browsers[0].DisplayMode)

	// Omitted fields take defaults
	assert.True(t, c.Browsers[0].HTTPInstrument)
	assert.Nil(t, c.Browsers[0].ProfileArchiveDir)

	assert.True(t, c.Browsers[1].TorMode)
	assert.Equal(t, SliderSafer, c.Browsers[1].SliderSetting)
}

func TestLoadRunConfig_CleansInstrumentRules(t *testing.T) {
	path := writeConfigFile(t, `
manager:
  data_directory: /tmp/crawl
browsers:
  - browser_id: browser-0
    js_instrument: true
    js_instrument_rules:
      - object: window.navigator
        properties: ["user*", "plugins"]
        log_call_stack: true
`)

	c, err := LoadRunConfig(path)
	require.NoError(t, err)
	require.Len(t, c.Browsers, 1)

	settings := c.Browsers[0].CleanedJSInstrumentSettings
	require.Contains(t, settings, "window.navigator")
	nav := settings["window.navigator"].(map[string]any)
	assert.Equal(t, []string{"plugins", "user*"}, nav["properties"])
	assert.Equal(t, true, nav["log_call_stack"])
}

func TestLoadRunConfig_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadRunConfig(filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read config file")
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := writeConfigFile(t, "manager: [not: a: mapping")
		_, err := LoadRunConfig(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse config file")
	})

	t.Run("no browsers", func(t *testing.T) {
		path := writeConfigFile(t, "manager:\n  data_directory: /tmp/crawl\n")
		_, err := LoadRunConfig(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least one browser configuration is required")
	})

	t.Run("invalid instrument pattern", func(t *testing.T) {
		path := writeConfigFile(t, `
manager:
  data_directory: /tmp/crawl
browsers:
  - browser_id: browser-0
    js_instrument_rules:
      - object: window
        properties: ["[bad"]
`)
		_, err := LoadRunConfig(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid property pattern")
	})
}

func TestBrowserConfig_ToMap(t *testing.T) {
	c := DefaultBrowserConfig()
	c.BrowserID = "browser-0"
	seed := "/profiles/seed.tar"
	c.SeedTar = &seed

	m := c.ToMap()

	assert.Equal(t, "browser-0", m["browser_id"])
	assert.Equal(t, "/profiles/seed.tar", m["seed_tar"])
	assert.Nil(t, m["profile_archive_dir"])
	assert.NotContains(t, m, "js_instrument_rules")
	assert.Contains(t, m, "cleaned_js_instrument_settings")
}

func TestManagerConfig_ToMap(t *testing.T) {
	c := DefaultManagerConfig()
	m := c.ToMap()

	assert.Equal(t, c.DataDirectory, m["data_directory"])
	// json round-trip turns ints into float64
	assert.Equal(t, float64(c.NumBrowsers), m["num_browsers"])
}
