// Package shellparse turns raw command strings into ordered Segments grouped
// into Chains by control operator. It is pure text processing: nothing is
// executed, and environment references or subshell syntax are preserved as
// opaque tokens rather than expanded, since expansion is a runtime property a
// security decision must not depend on.
package shellparse

import (
	"fmt"
	"strings"

	"mvdan.cc/sh/v3/syntax"

	unicheck "github.com/gzhole/cmdgate/internal/unicode"
)

// Analyze parses raw into a CommandAnalysis. It never returns an error:
// empty or unparseable input yields OK=false, recoverable problems such as
// unterminated quotes are reported as non-fatal diagnostics in Errors
// alongside a best-effort result, and compound constructs whose bodies the
// segment model cannot enumerate force OK=false so nothing executes
// unexamined.
func Analyze(raw string) CommandAnalysis {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return CommandAnalysis{OK: false, Errors: []string{"empty command"}}
	}

	analysis := CommandAnalysis{Threats: unicheck.Scan(trimmed)}
	for _, threat := range analysis.Threats {
		analysis.Errors = append(analysis.Errors, threat.String())
	}

	segs, ops, diags, unsupported := parseShell(trimmed)
	analysis.Errors = append(analysis.Errors, diags...)
	analysis.Segments = segs
	analysis.Chains = groupChains(segs, ops)

	if len(segs) == 0 {
		analysis.OK = false
		if len(analysis.Errors) == 0 {
			analysis.Errors = append(analysis.Errors, "no command found")
		}
		return analysis
	}

	// A compound construct hides invocations the segment model cannot
	// enumerate; approving only the visible segments would let the hidden
	// body run unchecked.
	if unsupported {
		analysis.OK = false
		return analysis
	}

	analysis.OK = true
	return analysis
}

// parseShell runs the mvdan.cc/sh parser and flattens the AST into segments
// plus the operators between them (ops[i] joins segs[i] and segs[i+1]).
// When the shell grammar rejects the input, it falls back to the quote-aware
// tokenizer so a malformed command still produces a best-effort analysis.
// The final result reports whether any statement was an unsupported compound
// construct whose body the segment list does not cover.
func parseShell(cmd string) ([]Segment, []Operator, []string, bool) {
	parser := syntax.NewParser(syntax.KeepComments(false), syntax.Variant(syntax.LangBash))
	file, err := parser.Parse(strings.NewReader(cmd), "")
	if err != nil {
		segs, ops, diags := fallbackParse(cmd)
		diags = append([]string{fmt.Sprintf("shell syntax error, using best-effort tokenization: %v", err)}, diags...)
		return segs, ops, diags, false
	}

	var segs []Segment
	var ops []Operator
	var diags []string
	unsupported := false
	for _, stmt := range file.Stmts {
		stmtSegs, stmtOps, stmtDiags, stmtUnsupported := walkStmt(stmt)
		diags = append(diags, stmtDiags...)
		unsupported = unsupported || stmtUnsupported
		if len(stmtSegs) == 0 {
			continue
		}
		if len(segs) > 0 {
			// Top-level statements are joined by ; (or & / newline,
			// which gate decisions treat the same way).
			ops = append(ops, OpSeq)
		}
		segs = append(segs, stmtSegs...)
		ops = append(ops, stmtOps...)
	}
	return segs, ops, diags, unsupported
}

func walkStmt(stmt *syntax.Stmt) ([]Segment, []Operator, []string, bool) {
	if stmt == nil || stmt.Cmd == nil {
		return nil, nil, nil, false
	}

	var segs []Segment
	var ops []Operator
	var diags []string
	unsupported := false

	switch cmd := stmt.Cmd.(type) {
	case *syntax.CallExpr:
		seg, ok := callExprToSegment(cmd)
		if !ok {
			if len(cmd.Assigns) > 0 {
				diags = append(diags, "assignment-only statement has no executable")
			}
			break
		}
		segs = append(segs, seg)

	case *syntax.BinaryCmd:
		left, leftOps, leftDiags, leftUnsupported := walkStmt(cmd.X)
		right, rightOps, rightDiags, rightUnsupported := walkStmt(cmd.Y)
		diags = append(diags, leftDiags...)
		diags = append(diags, rightDiags...)
		unsupported = leftUnsupported || rightUnsupported
		segs = append(segs, left...)
		ops = append(ops, leftOps...)
		if len(left) > 0 && len(right) > 0 {
			ops = append(ops, binaryOp(cmd.Op))
		}
		segs = append(segs, right...)
		ops = append(ops, rightOps...)

	case *syntax.Subshell:
		segs, ops, diags, unsupported = walkStmtList(cmd.Stmts)

	case *syntax.Block:
		segs, ops, diags, unsupported = walkStmtList(cmd.Stmts)

	default:
		// Loops, conditionals, function declarations and other compound
		// constructs hide invocations the segment model cannot enumerate.
		// Flagging them forces OK=false so the whole command is denied
		// rather than gated on its visible segments alone.
		diags = append(diags, fmt.Sprintf("unsupported shell construct %T", stmt.Cmd))
		unsupported = true
	}

	// Redirect operators are token boundaries but never start a new
	// segment; keep them in the owning segment's argv for inspection.
	if len(segs) > 0 && len(stmt.Redirs) > 0 {
		last := &segs[len(segs)-1]
		for _, redir := range stmt.Redirs {
			last.Argv = append(last.Argv, redirOp(redir))
			if redir.Word != nil {
				last.Argv = append(last.Argv, wordText(redir.Word))
			}
		}
	}

	return segs, ops, diags, unsupported
}

func walkStmtList(stmts []*syntax.Stmt) ([]Segment, []Operator, []string, bool) {
	var segs []Segment
	var ops []Operator
	var diags []string
	unsupported := false
	for _, s := range stmts {
		sSegs, sOps, sDiags, sUnsupported := walkStmt(s)
		diags = append(diags, sDiags...)
		unsupported = unsupported || sUnsupported
		if len(sSegs) == 0 {
			continue
		}
		if len(segs) > 0 {
			ops = append(ops, OpSeq)
		}
		segs = append(segs, sSegs...)
		ops = append(ops, sOps...)
	}
	return segs, ops, diags, unsupported
}

func callExprToSegment(call *syntax.CallExpr) (Segment, bool) {
	argv := make([]string, 0, len(call.Args))
	for _, word := range call.Args {
		argv = append(argv, wordText(word))
	}
	if len(argv) == 0 {
		return Segment{}, false
	}
	return newSegment(argv), true
}

func newSegment(argv []string) Segment {
	seg := Segment{
		Executable: argv[0],
		Argv:       argv,
	}
	if strings.ContainsAny(seg.Executable, `/\`) {
		seg.IsPathBased = true
		seg.ResolvedPath = seg.Executable
	}
	return seg
}

// groupChains builds operator-tagged chains from the flat segment list.
// The first segment opens a chain with OpNone; each later segment extends
// the current chain when its joining operator matches the chain's, and
// otherwise opens a new chain tagged with that operator.
func groupChains(segs []Segment, ops []Operator) []Chain {
	if len(segs) == 0 {
		return nil
	}
	chains := []Chain{{Operator: OpNone, Segments: []Segment{segs[0]}}}
	for i := 1; i < len(segs); i++ {
		op := OpSeq
		if i-1 < len(ops) {
			op = ops[i-1]
		}
		cur := &chains[len(chains)-1]
		if cur.Operator == op {
			cur.Segments = append(cur.Segments, segs[i])
			continue
		}
		chains = append(chains, Chain{Operator: op, Segments: []Segment{segs[i]}})
	}
	return chains
}

// wordText flattens a word to one token. Quoted spans contribute their
// literal content; expansions ($VAR, $(...), backticks, globs) are printed
// back as written and kept opaque.
func wordText(word *syntax.Word) string {
	var sb strings.Builder
	for _, part := range word.Parts {
		sb.WriteString(partText(part, false))
	}
	return sb.String()
}

func partText(part syntax.WordPart, inDouble bool) string {
	switch p := part.(type) {
	case *syntax.Lit:
		return unescapeLit(p.Value, inDouble)
	case *syntax.SglQuoted:
		return p.Value
	case *syntax.DblQuoted:
		var sb strings.Builder
		for _, inner := range p.Parts {
			sb.WriteString(partText(inner, true))
		}
		return sb.String()
	default:
		var sb strings.Builder
		printer := syntax.NewPrinter()
		_ = printer.Print(&sb, part)
		return sb.String()
	}
}

// unescapeLit resolves backslash escapes in a literal. Inside double quotes
// only \" \\ \$ and \` are escapes; elsewhere a backslash quotes any
// following character.
func unescapeLit(lit string, inDouble bool) string {
	if !strings.Contains(lit, `\`) {
		return lit
	}
	var sb strings.Builder
	runes := []rune(lit)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '\\' || i+1 >= len(runes) {
			sb.WriteRune(r)
			continue
		}
		next := runes[i+1]
		if inDouble && !strings.ContainsRune("\"\\$`", next) {
			sb.WriteRune(r)
			continue
		}
		sb.WriteRune(next)
		i++
	}
	return sb.String()
}

func binaryOp(op syntax.BinCmdOperator) Operator {
	switch op {
	case syntax.Pipe, syntax.PipeAll:
		return OpPipe
	case syntax.AndStmt:
		return OpAnd
	case syntax.OrStmt:
		return OpOr
	default:
		return OpSeq
	}
}

func redirOp(redir *syntax.Redirect) string {
	switch redir.Op {
	case syntax.RdrOut:
		return ">"
	case syntax.AppOut:
		return ">>"
	case syntax.RdrIn:
		return "<"
	default:
		return redir.Op.String()
	}
}

func joinTokens(tokens []string) string {
	return strings.Join(tokens, " ")
}
