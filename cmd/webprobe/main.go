// Package main provides the webprobe support CLI: it resolves browser
// binaries, collects version identifiers, and renders a run's
// configuration report. It can also parse a captured JavaScript stack
// trace into structured JSON.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/entrhq/webprobe/pkg/config"
	"github.com/entrhq/webprobe/pkg/logging"
	"github.com/entrhq/webprobe/pkg/paths"
	"github.com/entrhq/webprobe/pkg/report"
	"github.com/entrhq/webprobe/pkg/trace"
	"github.com/entrhq/webprobe/pkg/version"
)

const cliVersion = "0.1.0"

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigFile  string
	InstallRoot string
	TraceFile   string
	OutputFile  string
	ShowVersion bool
}

func main() {
	cli := parseFlags()

	if cli.ShowVersion {
		fmt.Printf("webprobe v%s\n", cliVersion)
		return
	}

	if err := run(cli); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// parseFlags parses command line flags
func parseFlags() *CLIConfig {
	cli := &CLIConfig{}

	flag.StringVar(&cli.ConfigFile, "config", "", "Path to run configuration YAML file")
	flag.StringVar(&cli.InstallRoot, "root", ".", "Browser install root directory")
	flag.StringVar(&cli.TraceFile, "trace", "", "Parse a stack trace file and print frames as JSON")
	flag.StringVar(&cli.OutputFile, "output", "", "Write output to file instead of stdout")
	flag.BoolVar(&cli.ShowVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "webprobe - browser measurement harness support utilities\n\n")
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "  webprobe -config run.yaml [-root DIR] [-output FILE]\n")
		fmt.Fprintf(os.Stderr, "  webprobe -trace trace.txt [-output FILE]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()
	return cli
}

func run(cli *CLIConfig) error {
	logger, logErr := logging.NewLogger("cli")
	if logErr != nil {
		fmt.Fprintf(os.Stderr, "Warning: file logging unavailable: %v\n", logErr)
	}
	defer logger.Close()

	switch {
	case cli.TraceFile != "":
		return runTrace(cli, logger)
	case cli.ConfigFile != "":
		return runReport(cli, logger)
	default:
		flag.Usage()
		return fmt.Errorf("either -config or -trace is required")
	}
}

// runTrace parses a captured stack trace file and prints the frames as
// JSON. Malformed frames are reported on stderr and skipped.
func runTrace(cli *CLIConfig, logger *logging.Logger) error {
	data, err := os.ReadFile(cli.TraceFile)
	if err != nil {
		return fmt.Errorf("failed to read trace file: %w", err)
	}

	frames, diags := trace.Parse(string(data))
	for _, d := range diags {
		logger.Warnf("skipping malformed stack frame: %s", d)
		fmt.Fprintf(os.Stderr, "Warning: skipping malformed stack frame: %s\n", d)
	}

	out, err := json.MarshalIndent(frames, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode frames: %w", err)
	}

	return writeOutput(cli.OutputFile, append(out, '\n'))
}

// runReport loads the run configuration, resolves browser versions and
// prints the configuration report.
func runReport(cli *CLIConfig, logger *logging.Logger) error {
	runConfig, err := config.LoadRunConfig(cli.ConfigFile)
	if err != nil {
		return err
	}
	logger.Infof("loaded run config with %d browser(s)", len(runConfig.Browsers))

	resolver := paths.NewResolver(cli.InstallRoot)
	versions, err := version.Collect(resolver)
	if err != nil {
		return err
	}
	logger.Infof("versions: harness=%s firefox=%s tor=%s",
		versions.Harness, versions.Firefox, versions.TorBrowser)

	out, err := report.BuildFromRun(runConfig, versions)
	if err != nil {
		return err
	}

	return writeOutput(cli.OutputFile, []byte(out))
}

func writeOutput(path string, data []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}
