package shellparse

import "strings"

// controlOps are the top-level operators that split segments, longest first
// so that && wins over & and || over |.
var controlOps = []string{"&&", "||", ";", "|", "&"}

// redirectOps split tokens but stay inside the current segment's argv.
var redirectOps = []string{">>", ">", "<"}

// fallbackParse is the quote-aware tokenizer used when the shell grammar
// rejects the input (most commonly an unterminated quote). It mirrors the
// main parser's output shape: a flat segment list plus joining operators.
func fallbackParse(cmd string) ([]Segment, []Operator, []string) {
	tokens, diags := tokenize(cmd)

	var segs []Segment
	var ops []Operator
	var argv []string
	var pendingOp Operator

	flush := func(op Operator) {
		if len(argv) > 0 {
			if len(segs) > 0 {
				ops = append(ops, pendingOp)
			}
			segs = append(segs, newSegment(argv))
			argv = nil
		}
		pendingOp = op
	}

	for _, tok := range tokens {
		if tok.op {
			switch tok.text {
			case "&&":
				flush(OpAnd)
			case "||":
				flush(OpOr)
			case "|":
				flush(OpPipe)
			case ";", "&":
				flush(OpSeq)
			default:
				// Redirect: token boundary, same segment.
				argv = append(argv, tok.text)
			}
			continue
		}
		argv = append(argv, tok.text)
	}
	flush(OpSeq)

	return segs, ops, diags
}

type token struct {
	text string
	op   bool
}

// tokenize splits cmd into tokens with shell quoting rules: quoted spans
// form one token, escapes are resolved inside double quotes and in bare
// text, and operators are emitted as their own tokens only outside quotes.
// An unterminated quote consumes the remainder as one token and records a
// diagnostic; tokenize never fails.
func tokenize(cmd string) ([]token, []string) {
	var tokens []token
	var diags []string
	var cur strings.Builder
	inToken := false

	flush := func() {
		if inToken {
			tokens = append(tokens, token{text: cur.String()})
			cur.Reset()
			inToken = false
		}
	}

	runes := []rune(cmd)
	for i := 0; i < len(runes); {
		r := runes[i]

		switch r {
		case ' ', '\t', '\n':
			flush()
			i++
			continue
		case '\'':
			end := indexRune(runes, i+1, '\'')
			if end < 0 {
				diags = append(diags, "unterminated single quote; remainder treated as one token")
				cur.WriteString(string(runes[i+1:]))
				inToken = true
				i = len(runes)
				continue
			}
			cur.WriteString(string(runes[i+1 : end]))
			inToken = true
			i = end + 1
			continue
		case '"':
			i++
			closed := false
			for i < len(runes) {
				c := runes[i]
				if c == '\\' && i+1 < len(runes) && strings.ContainsRune("\"\\$`", runes[i+1]) {
					cur.WriteRune(runes[i+1])
					i += 2
					continue
				}
				if c == '"' {
					closed = true
					i++
					break
				}
				cur.WriteRune(c)
				i++
			}
			if !closed {
				diags = append(diags, "unterminated double quote; remainder treated as one token")
			}
			inToken = true
			continue
		case '\\':
			if i+1 < len(runes) {
				cur.WriteRune(runes[i+1])
				inToken = true
				i += 2
				continue
			}
			i++
			continue
		}

		if opText, n := matchOperator(runes[i:]); n > 0 {
			flush()
			tokens = append(tokens, token{text: opText, op: true})
			i += n
			continue
		}

		cur.WriteRune(r)
		inToken = true
		i++
	}
	flush()

	return tokens, diags
}

func matchOperator(rest []rune) (string, int) {
	s := string(rest)
	for _, op := range controlOps {
		if strings.HasPrefix(s, op) {
			return op, len(op)
		}
	}
	for _, op := range redirectOps {
		if strings.HasPrefix(s, op) {
			return op, len(op)
		}
	}
	return "", 0
}

func indexRune(runes []rune, from int, want rune) int {
	for i := from; i < len(runes); i++ {
		if runes[i] == want {
			return i
		}
	}
	return -1
}
