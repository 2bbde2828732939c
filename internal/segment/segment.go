// Package segment splits the compiler's diagnostic stream into named phases.
//
// THE MARKER PROTOCOL:
// The compiler writes everything it knows about a compilation to stderr and
// announces each phase with a fixed sentence ("Lexical analysis complete.",
// "Parsing complete.", ...). A phase is the text between its start marker and
// the next marker we care about.
//
// The protocol is literal text, so it breaks whenever the compiler rewords a
// message. The segmenter never fails because of that: a missing marker yields
// an empty phase, never an error and never a half-cut slice.
//
// Every call searches from the beginning of the text. There is no shared
// cursor, so Extract is pure and can run from any number of goroutines.
package segment

import "strings"

// Boundary is one phase's slice of the stream: everything after Start up to End.
type Boundary struct {
	Name  string
	Start string
	End   string
}

// Phase names used by GranProtocol.
const (
	PhaseLexer  = "lexer"
	PhaseParser = "parser"
	PhaseIR     = "ir"
)

// GranProtocol is version 1 of the marker contract of the gran compiler.
// Order matters only for Extract's output order; each boundary is located
// independently.
var GranProtocol = []Boundary{
	{Name: PhaseLexer, Start: "Lexical analysis complete.", End: "Parsing complete."},
	{Name: PhaseParser, Start: "Parsing complete.", End: "IR dump:"},
	{Name: PhaseIR, Start: "IR dump:", End: "Running program..."},
}

// Section returns the trimmed text between the first start marker and the
// first end marker that follows it.
//
//   - start absent → ""
//   - end absent   → everything after start
func Section(text, start, end string) string {
	i := strings.Index(text, start)
	if i < 0 {
		return ""
	}
	rest := text[i+len(start):]

	if j := strings.Index(rest, end); j >= 0 {
		rest = rest[:j]
	}
	return strings.TrimSpace(rest)
}

// Extract returns one section per boundary, in boundary order.
func Extract(text string, boundaries []Boundary) []string {
	out := make([]string, len(boundaries))
	for i, b := range boundaries {
		out[i] = Section(text, b.Start, b.End)
	}
	return out
}

// Phases is Extract keyed by boundary name. Every boundary name is present in
// the result, even when its section is empty.
func Phases(text string, boundaries []Boundary) map[string]string {
	sections := Extract(text, boundaries)
	phases := make(map[string]string, len(boundaries))
	for i, b := range boundaries {
		phases[b.Name] = sections[i]
	}
	return phases
}
