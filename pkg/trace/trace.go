// Package trace parses the textual JavaScript stack traces emitted by the
// browser's HTTP instrumentation into structured frame records.
package trace

import (
	"fmt"
	"strings"
)

// Frame describes a single call-site in a JavaScript stack trace.
// All fields are raw substrings of the original trace line; line and
// column numbers are not validated or coerced to integers.
type Frame struct {
	FunctionName string `json:"func_name"`
	Filename     string `json:"filename"`
	LineNumber   string `json:"line_no"`
	ColumnNumber string `json:"col_no"`
	AsyncCause   string `json:"async_cause"`
}

// Diagnostic records a trace line that failed to parse. Malformed lines
// are skipped, not surfaced as errors, so callers that care inspect the
// diagnostics returned alongside the frames.
type Diagnostic struct {
	// Line is the zero-based index of the offending line in the input.
	Line int
	// Frame is the raw line text.
	Frame string
	// Reason describes why the line did not match the frame grammar.
	Reason string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("line %d: %s: %q", d.Line, d.Reason, d.Frame)
}

// Parse converts a newline-delimited stack trace string into an ordered
// slice of frames. Each line is expected in the form
//
//	<func_name>@<filename>:<line_no>:<col_no>;<async_cause>
//
// Lines that do not match are dropped and reported in the returned
// diagnostics; parsing never fails as a whole. Empty input yields an
// empty frame slice.
func Parse(traceText string) ([]Frame, []Diagnostic) {
	frames := []Frame{}
	var diags []Diagnostic

	if traceText == "" {
		return frames, nil
	}

	for i, line := range strings.Split(traceText, "\n") {
		frame, err := parseLine(line)
		if err != nil {
			diags = append(diags, Diagnostic{Line: i, Frame: line, Reason: err.Error()})
			continue
		}
		frames = append(frames, frame)
	}
	return frames, diags
}

// parseLine applies the frame grammar to a single line. Splits are
// positional: the first "@" separates the function name, the last ";"
// separates the async cause, and the last two ":" separate line and
// column from the filename. Filenames may therefore contain colons
// (URLs, Windows paths) but function names must not contain "@".
func parseLine(line string) (Frame, error) {
	funcName, rest, ok := strings.Cut(line, "@")
	if !ok {
		return Frame{}, fmt.Errorf("missing '@' separator")
	}

	semi := strings.LastIndex(rest, ";")
	if semi < 0 {
		return Frame{}, fmt.Errorf("missing ';' separator")
	}
	location := rest[:semi]
	asyncCause := rest[semi+1:]

	lastColon := strings.LastIndex(location, ":")
	if lastColon < 0 {
		return Frame{}, fmt.Errorf("missing line/column separators")
	}
	colNo := location[lastColon+1:]

	prevColon := strings.LastIndex(location[:lastColon], ":")
	if prevColon < 0 {
		return Frame{}, fmt.Errorf("missing line/column separators")
	}

	return Frame{
		FunctionName: funcName,
		Filename:     location[:prevColon],
		LineNumber:   location[prevColon+1 : lastColon],
		ColumnNumber: colNo,
		AsyncCause:   asyncCause,
	}, nil
}
