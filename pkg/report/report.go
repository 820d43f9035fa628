// Package report renders a run's configuration as a human-readable
// report: version header, JSON blocks for the manager and per-browser
// path settings, and a compact table of the remaining per-browser
// fields.
package report

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/entrhq/webprobe/pkg/config"
	"github.com/entrhq/webprobe/pkg/version"
)

// Section delimiters. Consumers diff report output against these exact
// strings, so they must not change.
const (
	sectionManager     = "========== Manager Configuration =========="
	sectionBrowser     = "========== Browser Configuration =========="
	sectionJSSettings  = "========== JS Instrument Settings =========="
	sectionProfileTars = "========== Input profile tar files =========="
	sectionArchiveDirs = "========== Output (archive) profile dirs =========="

	noProfileTars = "  No profile tar files specified"
	noArchiveDirs = "  No profile archive directories specified"
)

// Fields pulled out of each browser record for separate presentation.
const (
	fieldBrowserID  = "browser_id"
	fieldSeedTar    = "seed_tar"
	fieldArchiveDir = "profile_archive_dir"
	fieldJSSettings = "cleaned_js_instrument_settings"
)

// Build renders the configuration report for a run. The manager record
// is emitted as key-sorted JSON; each browser record is projected into
// a path block, a JS-settings block and a remaining-fields table row.
// Inputs are never mutated. An empty browser slice is an error: the
// table legend is derived from the first browser's record.
//
// Ordering policy: manager keys lexical; remaining browser fields
// browser_id first then lexical; browsers in caller order; legend in
// the first browser's field order.
func Build(managerConfig map[string]any, browserConfigs []map[string]any, versions version.Info) (string, error) {
	if len(browserConfigs) == 0 {
		return "", fmt.Errorf("at least one browser configuration is required")
	}

	managerJSON, err := marshalSorted(managerConfig)
	if err != nil {
		return "", fmt.Errorf("manager configuration: %w", err)
	}

	profileDirs := newOrderedMap()
	archiveDirs := newOrderedMap()
	jsSettings := newOrderedMap()
	remaining := make([]*orderedMap, 0, len(browserConfigs))
	profileAllNone, archiveAllNone := true, true

	for i, browser := range browserConfigs {
		id, ok := browser[fieldBrowserID]
		if !ok {
			return "", fmt.Errorf("browser configuration %d: missing %s", i, fieldBrowserID)
		}
		browserID := fmt.Sprintf("%v", id)

		seedTar := browser[fieldSeedTar]
		if seedTar != nil {
			profileAllNone = false
		}
		archiveDir := browser[fieldArchiveDir]
		if archiveDir != nil {
			archiveAllNone = false
		}

		profileDirs.Set(browserID, pathString(seedTar))
		archiveDirs.Set(browserID, pathString(archiveDir))

		settings, settingsErr := canonicalize(browser[fieldJSSettings])
		if settingsErr != nil {
			return "", fmt.Errorf("browser %s: %s: %w", browserID, fieldJSSettings, settingsErr)
		}
		jsSettings.Set(browserID, settings)

		remaining = append(remaining, projectRemaining(browserID, browser))
	}

	legend := newOrderedMap()
	for i, key := range remaining[0].keys {
		legend.Set(key, i)
	}
	legendJSON, err := marshalIndented(legend)
	if err != nil {
		return "", fmt.Errorf("column legend: %w", err)
	}

	browserTable := renderTable(legend, remaining)

	jsJSON, err := marshalCompact(jsSettings)
	if err != nil {
		return "", fmt.Errorf("js instrument settings: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n\nWebProbe Version: %s\nFirefox Version: %s\nTor Browser Version: %s\n",
		versions.Harness, versions.Firefox, versions.TorBrowser)

	b.WriteString("\n" + sectionManager + "\n")
	b.WriteString(managerJSON)

	b.WriteString("\n\n" + sectionBrowser + "\n")
	b.WriteString("Keys:\n")
	b.WriteString(legendJSON)
	b.WriteString("\n\n")
	b.WriteString(browserTable)

	b.WriteString("\n\n" + sectionJSSettings + "\n")
	b.WriteString(jsJSON)

	b.WriteString("\n\n" + sectionProfileTars + "\n")
	if profileAllNone {
		b.WriteString(noProfileTars)
	} else {
		tarsJSON, tarsErr := marshalIndented(profileDirs)
		if tarsErr != nil {
			return "", fmt.Errorf("profile tar files: %w", tarsErr)
		}
		b.WriteString(tarsJSON)
	}

	b.WriteString("\n\n" + sectionArchiveDirs + "\n")
	if archiveAllNone {
		b.WriteString(noArchiveDirs)
	} else {
		dirsJSON, dirsErr := marshalIndented(archiveDirs)
		if dirsErr != nil {
			return "", fmt.Errorf("profile archive dirs: %w", dirsErr)
		}
		b.WriteString(dirsJSON)
	}

	b.WriteString("\n\n")
	return b.String(), nil
}

// BuildFromRun renders the report for a loaded run configuration.
func BuildFromRun(run *config.RunConfig, versions version.Info) (string, error) {
	browsers := make([]map[string]any, len(run.Browsers))
	for i := range run.Browsers {
		browsers[i] = run.Browsers[i].ToMap()
	}
	return Build(run.Manager.ToMap(), browsers, versions)
}

// projectRemaining builds the remaining-fields record for one browser:
// browser_id first, then every non-extracted key in lexical order. The
// source map is only read, never modified.
func projectRemaining(browserID string, browser map[string]any) *orderedMap {
	keys := make([]string, 0, len(browser))
	for key := range browser {
		switch key {
		case fieldBrowserID, fieldSeedTar, fieldArchiveDir, fieldJSSettings:
		default:
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	record := newOrderedMap()
	record.Set(fieldBrowserID, browserID)
	for _, key := range keys {
		record.Set(key, browser[key])
	}
	return record
}

// renderTable lays out the remaining-fields records as a table whose
// headers are the legend's column indices. Browsers missing a legend
// key produce empty cells; that only happens when records disagree on
// schema, which the legend cannot represent faithfully anyway.
func renderTable(legend *orderedMap, records []*orderedMap) string {
	headers := make([]string, legend.Len())
	for i := range headers {
		headers[i] = strconv.Itoa(i)
	}

	rows := make([][]string, 0, len(records))
	for _, record := range records {
		row := make([]string, 0, legend.Len())
		for _, key := range legend.keys {
			value, ok := record.values[key]
			if !ok {
				row = append(row, "")
				continue
			}
			row = append(row, cellString(value))
		}
		rows = append(rows, row)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle()).
		StyleFunc(func(row, col int) lipgloss.Style {
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers(headers...).
		Rows(rows...)

	return t.Render()
}

// pathString renders a seed-tar or archive-dir value for the path
// blocks. Absent values render as the string "None" so every browser
// id still appears in the map.
func pathString(v any) string {
	if v == nil {
		return "None"
	}
	return fmt.Sprintf("%v", v)
}

func cellString(v any) string {
	if v == nil {
		return "None"
	}
	return fmt.Sprintf("%v", v)
}
