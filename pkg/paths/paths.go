// Package paths resolves browser binary and profile directory locations
// for a run. Each lookup checks an environment-variable override first,
// then the conventional location under the install root, and fails with
// an error that says which of the two was tried.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// Environment variables recognized as lookup overrides.
const (
	EnvFirefoxBinary     = "FIREFOX_BINARY"
	EnvTorBrowserBinary  = "TORBROWSER_BINARY"
	EnvTorBrowserProfile = "TORBROWSER_PROFILE"
)

// Resolver locates browser binaries and profiles relative to an install
// root (the directory the install script unpacks browsers into).
type Resolver struct {
	// Root is the install root. Relative locations below are joined
	// onto it.
	Root string

	// goos is runtime.GOOS unless overridden in tests
	goos string
}

// NewResolver returns a resolver rooted at the given install directory.
func NewResolver(root string) *Resolver {
	return &Resolver{Root: root, goos: runtime.GOOS}
}

// FirefoxBinary returns the absolute path of the Firefox binary. The
// FIREFOX_BINARY environment variable wins if set; otherwise the
// conventional location under the install root is used.
func (r *Resolver) FirefoxBinary() (string, error) {
	if override, ok := os.LookupEnv(EnvFirefoxBinary); ok {
		if !isFile(override) {
			return "", fmt.Errorf(
				"no file found at the path specified in environment variable %s (current value: %s)",
				EnvFirefoxBinary, override)
		}
		return override, nil
	}

	var rel string
	if r.goos == "darwin" {
		rel = "Nightly.app/Contents/MacOS/firefox-bin"
	} else {
		rel = "firefox-bin/firefox-bin"
	}

	path, err := filepath.Abs(filepath.Join(r.Root, rel))
	if err != nil {
		return "", fmt.Errorf("failed to resolve firefox binary path: %w", err)
	}
	if !isFile(path) {
		return "", fmt.Errorf(
			"firefox binary not found at the default install location %s; "+
				"run the install script or set %s", path, EnvFirefoxBinary)
	}
	return path, nil
}

// TorBrowserBinary returns the absolute path of the Tor Browser binary,
// honoring the TORBROWSER_BINARY override.
func (r *Resolver) TorBrowserBinary() (string, error) {
	if override, ok := os.LookupEnv(EnvTorBrowserBinary); ok {
		if !isFile(override) {
			return "", fmt.Errorf(
				"no file found at the path specified in environment variable %s (current value: %s)",
				EnvTorBrowserBinary, override)
		}
		return override, nil
	}

	var rel string
	if r.goos == "darwin" {
		rel = "Nightly.app/Contents/MacOS/Tor/firefox-bin"
	} else {
		rel = "Tor/tor-browser/Browser/firefox"
	}

	path, err := filepath.Abs(filepath.Join(r.Root, rel))
	if err != nil {
		return "", fmt.Errorf("failed to resolve tor browser binary path: %w", err)
	}
	if !isFile(path) {
		return "", fmt.Errorf(
			"tor browser binary not found at the default install location %s; "+
				"run the install script or set %s", path, EnvTorBrowserBinary)
	}
	return path, nil
}

// TorProfileDir returns the Tor Browser profile directory for the given
// security slider setting. With the TORBROWSER_PROFILE override set,
// the slider setting is joined onto the override; otherwise the
// conventional per-setting directory under the install root is used.
func (r *Resolver) TorProfileDir(sliderSetting string) (string, error) {
	if sliderSetting == "" {
		return "", fmt.Errorf("slider setting is required")
	}

	if override, ok := os.LookupEnv(EnvTorBrowserProfile); ok {
		path := filepath.Join(override, sliderSetting)
		if !isDir(path) {
			return "", fmt.Errorf(
				"no directory found at the path specified in environment variable %s "+
					"(current value: %s, slider setting: %s)",
				EnvTorBrowserProfile, override, sliderSetting)
		}
		return path, nil
	}

	path, err := filepath.Abs(filepath.Join(
		r.Root, "Tor/tor-browser/Browser/TorBrowser/Data/Browser", sliderSetting))
	if err != nil {
		return "", fmt.Errorf("failed to resolve tor profile path: %w", err)
	}
	if !isDir(path) {
		return "", fmt.Errorf(
			"tor browser profile for slider setting %q not found at the default "+
				"install location %s; set %s to use a different profile root",
			sliderSetting, path, EnvTorBrowserProfile)
	}
	return path, nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
