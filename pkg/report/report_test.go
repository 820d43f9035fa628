package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/webprobe/pkg/config"
	"github.com/entrhq/webprobe/pkg/version"
)

var testVersions = version.Info{
	Harness:    "v1.2.0",
	Firefox:    "140.0.2",
	TorBrowser: "14.5",
}

func minimalBrowser(id string) map[string]any {
	return map[string]any{
		"browser_id":                     id,
		"seed_tar":                       nil,
		"profile_archive_dir":            nil,
		"cleaned_js_instrument_settings": map[string]any{},
	}
}

func TestBuild_SectionDelimiters(t *testing.T) {
	out, err := Build(map[string]any{"a": 1}, []map[string]any{minimalBrowser("b0")}, testVersions)
	require.NoError(t, err)

	for _, section := range []string{
		"========== Manager Configuration ==========",
		"========== Browser Configuration ==========",
		"========== JS Instrument Settings ==========",
		"========== Input profile tar files ==========",
		"========== Output (archive) profile dirs ==========",
	} {
		assert.Contains(t, out, section)
	}
}

func TestBuild_VersionHeader(t *testing.T) {
	out, err := Build(map[string]any{}, []map[string]any{minimalBrowser("b0")}, testVersions)
	require.NoError(t, err)

	assert.Contains(t, out, "WebProbe Version: v1.2.0")
	assert.Contains(t, out, "Firefox Version: 140.0.2")
	assert.Contains(t, out, "Tor Browser Version: 14.5")
}

func TestBuild_PlaceholdersWhenAllPathsAbsent(t *testing.T) {
	out, err := Build(map[string]any{"a": 1}, []map[string]any{minimalBrowser("b0")}, testVersions)
	require.NoError(t, err)

	assert.Contains(t, out, "No profile tar files specified")
	assert.Contains(t, out, "No profile archive directories specified")

	// No JSON object is emitted for either path section
	tarSection := sectionBody(t, out, sectionProfileTars)
	assert.NotContains(t, tarSection, "{")
	dirSection := sectionBody(t, out, sectionArchiveDirs)
	assert.NotContains(t, dirSection, "{")
}

func TestBuild_MixedSeedTars(t *testing.T) {
	b0 := minimalBrowser("b0")
	b0["seed_tar"] = "/a.tar"
	b1 := minimalBrowser("b1")

	out, err := Build(map[string]any{}, []map[string]any{b0, b1}, testVersions)
	require.NoError(t, err)

	tarSection := sectionBody(t, out, sectionProfileTars)
	assert.Contains(t, tarSection, `"b0": "/a.tar"`)
	assert.Contains(t, tarSection, `"b1": "None"`)
	assert.NotContains(t, out, "No profile tar files specified")
	assert.Contains(t, out, "No profile archive directories specified")
}

func TestBuild_ManagerConfigSortedJSON(t *testing.T) {
	manager := map[string]any{"zeta": 1, "alpha": "x", "mid": true}

	out, err := Build(manager, []map[string]any{minimalBrowser("b0")}, testVersions)
	require.NoError(t, err)

	body := sectionBody(t, out, sectionManager)
	alpha := strings.Index(body, `"alpha"`)
	mid := strings.Index(body, `"mid"`)
	zeta := strings.Index(body, `"zeta"`)
	require.True(t, alpha >= 0 && mid >= 0 && zeta >= 0)
	assert.Less(t, alpha, mid)
	assert.Less(t, mid, zeta)
}

func TestBuild_LegendFromFirstBrowser(t *testing.T) {
	b0 := minimalBrowser("b0")
	b0["headless"] = true
	b0["display_mode"] = "native"

	out, err := Build(map[string]any{}, []map[string]any{b0}, testVersions)
	require.NoError(t, err)

	body := sectionBody(t, out, sectionBrowser)
	assert.Contains(t, body, "Keys:")
	// browser_id is always column 0; remaining keys follow lexically
	assert.Contains(t, body, `"browser_id": 0`)
	assert.Contains(t, body, `"display_mode": 1`)
	assert.Contains(t, body, `"headless": 2`)
}

func TestBuild_TableContainsBrowserRows(t *testing.T) {
	b0 := minimalBrowser("b0")
	b0["headless"] = true
	b1 := minimalBrowser("b1")
	b1["headless"] = false

	out, err := Build(map[string]any{}, []map[string]any{b0, b1}, testVersions)
	require.NoError(t, err)

	body := sectionBody(t, out, sectionBrowser)
	assert.Contains(t, body, "b0")
	assert.Contains(t, body, "b1")
	assert.Contains(t, body, "true")
	assert.Contains(t, body, "false")
}

func TestBuild_JSSettingsSingleLine(t *testing.T) {
	b0 := minimalBrowser("b0")
	b0["cleaned_js_instrument_settings"] = map[string]any{
		"window.navigator": map[string]any{"log_call_stack": true},
	}

	out, err := Build(map[string]any{}, []map[string]any{b0}, testVersions)
	require.NoError(t, err)

	body := strings.TrimSpace(sectionBody(t, out, sectionJSSettings))
	assert.NotContains(t, body, "\n")
	assert.Contains(t, body, `"window.navigator":{"log_call_stack":true}`)
}

func TestBuild_EmptyBrowserList(t *testing.T) {
	out, err := Build(map[string]any{"a": 1}, nil, testVersions)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one browser configuration is required")
	assert.Empty(t, out)
}

func TestBuild_MissingBrowserID(t *testing.T) {
	out, err := Build(map[string]any{}, []map[string]any{{"seed_tar": nil}}, testVersions)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing browser_id")
	assert.Empty(t, out)
}

func TestBuild_UnserializableManagerValue(t *testing.T) {
	manager := map[string]any{"bad": make(chan int)}

	out, err := Build(manager, []map[string]any{minimalBrowser("b0")}, testVersions)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not serializable")
	assert.Empty(t, out)
}

func TestBuild_DoesNotMutateInputs(t *testing.T) {
	b0 := minimalBrowser("b0")
	b0["seed_tar"] = "/a.tar"
	b0["headless"] = true

	_, err := Build(map[string]any{"a": 1}, []map[string]any{b0}, testVersions)
	require.NoError(t, err)

	// Extracted fields must still be present on the caller's map
	assert.Equal(t, "/a.tar", b0["seed_tar"])
	assert.Contains(t, b0, "profile_archive_dir")
	assert.Contains(t, b0, "cleaned_js_instrument_settings")
	assert.Len(t, b0, 5)
}

func TestBuild_Deterministic(t *testing.T) {
	manager := map[string]any{"a": 1, "b": 2, "c": 3}
	browsers := []map[string]any{minimalBrowser("b0"), minimalBrowser("b1")}

	first, err := Build(manager, browsers, testVersions)
	require.NoError(t, err)
	second, err := Build(manager, browsers, testVersions)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestBuildFromRun(t *testing.T) {
	seed := "/profiles/seed.tar"
	b0 := config.DefaultBrowserConfig()
	b0.BrowserID = "browser-0"
	b0.SeedTar = &seed
	b1 := config.DefaultBrowserConfig()
	b1.BrowserID = "browser-1"

	run := &config.RunConfig{
		Manager:  config.DefaultManagerConfig(),
		Browsers: []config.BrowserConfig{b0, b1},
	}

	out, err := BuildFromRun(run, testVersions)
	require.NoError(t, err)

	assert.Contains(t, out, `"browser-0": "/profiles/seed.tar"`)
	assert.Contains(t, out, `"browser-1": "None"`)
	assert.Contains(t, out, `"data_directory"`)

	// Caller configs stay untouched
	require.NotNil(t, run.Browsers[0].SeedTar)
	assert.Equal(t, seed, *run.Browsers[0].SeedTar)
}

// sectionBody extracts the text between a section delimiter and the
// next one (or end of report).
func sectionBody(t *testing.T, out, section string) string {
	t.Helper()
	start := strings.Index(out, section)
	require.GreaterOrEqual(t, start, 0, "section %q not found", section)
	body := out[start+len(section):]
	if next := strings.Index(body, "=========="); next >= 0 {
		body = body[:next]
	}
	return body
}
