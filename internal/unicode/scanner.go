// Package unicode detects characters that can make a displayed command
// differ from the command that would execute: zero-width characters,
// bidirectional overrides, Unicode tag characters, raw control characters
// and invalid UTF-8. A command carrying any of these is not safe to gate on
// its visible text.
package unicode

import (
	"fmt"
	"unicode/utf8"
)

// Threat is one suspicious character found in a command string.
type Threat struct {
	Category  string // "zero-width", "bidi-override", "tag-char", "control-char", "invalid-utf8"
	Codepoint string // "U+200B"
	Position  int    // byte offset in the input
}

func (t Threat) String() string {
	return fmt.Sprintf("suspicious unicode (%s) %s at byte %d", t.Category, t.Codepoint, t.Position)
}

// Scan inspects input for unicode smuggling indicators. A nil result means
// the string is clean.
func Scan(input string) []Threat {
	var threats []Threat
	for i := 0; i < len(input); {
		r, size := utf8.DecodeRuneInString(input[i:])
		if r == utf8.RuneError && size == 1 {
			threats = append(threats, Threat{
				Category:  "invalid-utf8",
				Codepoint: fmt.Sprintf("0x%02X", input[i]),
				Position:  i,
			})
			i++
			continue
		}
		if cat := classify(r); cat != "" {
			threats = append(threats, Threat{
				Category:  cat,
				Codepoint: fmt.Sprintf("U+%04X", r),
				Position:  i,
			})
		}
		i += size
	}
	return threats
}

func classify(r rune) string {
	switch {
	case isZeroWidth(r):
		return "zero-width"
	case isBidiOverride(r):
		return "bidi-override"
	case r >= 0xE0000 && r <= 0xE007F:
		return "tag-char"
	case isUnsafeControl(r):
		return "control-char"
	}
	return ""
}

func isZeroWidth(r rune) bool {
	switch r {
	case 0x200B, 0x200C, 0x200D, 0x2060, 0xFEFF, 0x00AD, 0x180E:
		return true
	}
	return false
}

func isBidiOverride(r rune) bool {
	switch r {
	case 0x202A, 0x202B, 0x202C, 0x202D, 0x202E, // embeddings and overrides
		0x2066, 0x2067, 0x2068, 0x2069: // isolates
		return true
	}
	return false
}

// isUnsafeControl reports C0/C1 controls except tab, newline and carriage
// return, which legitimately appear in multi-line commands.
func isUnsafeControl(r rune) bool {
	if r == '\t' || r == '\n' || r == '\r' {
		return false
	}
	return r < 0x20 || r == 0x7F || (r >= 0x80 && r <= 0x9F)
}
