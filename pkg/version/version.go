// Package version retrieves the version identifiers reported in a run's
// configuration header: the harness version and the versions of the
// Firefox and Tor Browser binaries the run will drive.
package version

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/entrhq/webprobe/pkg/paths"
)

// Tor Browser version metadata failures, distinguishable with
// errors.Is.
var (
	ErrTorVersionMissing    = errors.New("tor browser version metadata not found")
	ErrTorVersionUnreadable = errors.New("tor browser version metadata cannot be read")
	ErrTorVersionMalformed  = errors.New("tor browser version metadata not formatted properly")
)

// torVersionFile sits next to the Tor Browser binary and carries the
// bundle version.
const torVersionFile = "tbb_version.json"

// Info is the version tuple rendered in the report header.
type Info struct {
	Harness    string
	Firefox    string
	TorBrowser string
}

// Collect gathers all three version identifiers using the given
// resolver. Binary lookups and subprocess failures are returned as
// errors rather than placeholder strings.
func Collect(r *paths.Resolver) (Info, error) {
	harness, err := Harness(r.Root)
	if err != nil {
		return Info{}, err
	}

	firefoxBinary, err := r.FirefoxBinary()
	if err != nil {
		return Info{}, err
	}
	firefox, err := Firefox(firefoxBinary)
	if err != nil {
		return Info{}, err
	}

	torBinary, err := r.TorBrowserBinary()
	if err != nil {
		return Info{}, err
	}
	tor, err := TorBrowser(torBinary)
	if err != nil {
		return Info{}, err
	}

	return Info{Harness: harness, Firefox: firefox, TorBrowser: tor}, nil
}

// Harness returns the harness version: the git tag or commit of the
// checkout at root, falling back to the VERSION file when the tree is
// not a git repository.
func Harness(root string) (string, error) {
	cmd := exec.Command("git", "describe", "--tags", "--always")
	cmd.Dir = root
	output, err := cmd.Output()
	if err == nil {
		return strings.TrimSpace(string(output)), nil
	}

	data, readErr := os.ReadFile(filepath.Join(root, "VERSION"))
	if readErr != nil {
		return "", fmt.Errorf("failed to determine harness version: git describe failed and no VERSION file: %w", readErr)
	}
	line, _, _ := strings.Cut(string(data), "\n")
	return strings.TrimSpace(line), nil
}

// Firefox runs the given binary with --version and returns the trailing
// whitespace-delimited token of its output, e.g. "140.0.2" from
// "Mozilla Firefox 140.0.2".
func Firefox(binaryPath string) (string, error) {
	if _, err := os.Stat(binaryPath); err != nil {
		return "", fmt.Errorf("firefox binary missing: %w", err)
	}

	output, err := exec.Command(binaryPath, "--version").Output()
	if err != nil {
		return "", fmt.Errorf("firefox version check failed: %w", err)
	}

	fields := strings.Fields(string(output))
	if len(fields) == 0 {
		return "", fmt.Errorf("firefox version check produced no output")
	}
	return fields[len(fields)-1], nil
}

// TorBrowser reads the bundle version from the tbb_version.json file
// next to the given Tor Browser binary.
func TorBrowser(binaryPath string) (string, error) {
	metaPath := filepath.Join(filepath.Dir(binaryPath), torVersionFile)

	data, err := os.ReadFile(metaPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrTorVersionMissing, metaPath)
		}
		return "", fmt.Errorf("%w: %v", ErrTorVersionUnreadable, err)
	}

	var meta struct {
		Version string `json:"version"`
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTorVersionMalformed, err)
	}
	if meta.Version == "" {
		return "", fmt.Errorf("%w: missing version field", ErrTorVersionMalformed)
	}
	return meta.Version, nil
}
