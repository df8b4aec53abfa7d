package shellparse

import unicheck "github.com/gzhole/cmdgate/internal/unicode"

// Operator is the control operator joining a chain to the one before it,
// or joining the segments inside a same-operator run.
type Operator string

const (
	// OpNone marks the first chain of a command; nothing joins it.
	OpNone Operator = ""
	OpPipe Operator = "|"
	OpAnd  Operator = "&&"
	OpOr   Operator = "||"
	OpSeq  Operator = ";"
)

// Segment is a single program invocation extracted from a command string.
// Immutable once produced by Analyze.
type Segment struct {
	// Executable is the invocation token (first token of the segment).
	Executable string
	// Argv is the ordered token list, executable first. Redirect operators
	// and their targets are kept here for downstream inspection.
	Argv []string
	// IsPathBased is true when the executable token contains a path
	// separator (./tool, /usr/bin/env, ..\x.exe).
	IsPathBased bool
	// ResolvedPath holds the executable token when IsPathBased is set.
	ResolvedPath string
}

// Text returns the segment's full command text, the form allowlist
// patterns are matched against.
func (s Segment) Text() string {
	return joinTokens(s.Argv)
}

// Chain is an ordered run of Segments introduced by one control operator.
// The first chain of a command carries OpNone; every later chain carries
// the operator that joins it to the preceding one, and segments inside a
// chain are joined by that same operator.
type Chain struct {
	Operator Operator
	Segments []Segment
}

// CommandAnalysis is the parser's output for one raw command string.
type CommandAnalysis struct {
	// OK is false for empty or unparseable input, and for commands
	// containing compound constructs (loops, conditionals, function
	// declarations) whose bodies the segment list cannot cover. Such
	// commands never reach pattern matching and are denied by default.
	OK bool
	// Segments is the flat, whole-command segment list.
	Segments []Segment
	// Chains groups the same segments by control operator.
	Chains []Chain
	// Threats lists characters that make the displayed command text
	// differ from the executed text; any entry forces a denial.
	Threats []unicheck.Threat
	// Errors holds non-fatal diagnostics (unterminated quotes, unicode
	// smuggling indicators, unsupported constructs).
	Errors []string
}
