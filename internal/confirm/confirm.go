// Package confirm implements the interactive rescue path for denied
// commands when the ask policy is "always". The engine itself never
// blocks; asking the operator is strictly a calling-surface concern.
package confirm

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Result is the operator's answer.
type Result struct {
	Approved   bool
	UserAction string // "approve_once", "deny", "fallback_allow", "fallback_deny", "error_reading_input"
}

// Prompt describes the denied command being reconsidered.
type Prompt struct {
	Command string
	Reason  string
}

// IsInteractive reports whether stdin is a terminal an operator can answer
// on.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// Ask presents the denial and waits for an approve/deny answer on stdin.
// Without a terminal it resolves immediately: fallbackAllow decides the
// answer, defaulting to deny.
func Ask(p Prompt, fallbackAllow bool) Result {
	if !IsInteractive() {
		if fallbackAllow {
			return Result{Approved: true, UserAction: "fallback_allow"}
		}
		return Result{Approved: false, UserAction: "fallback_deny"}
	}
	return ask(p, os.Stdin, os.Stderr)
}

func ask(p Prompt, in io.Reader, out io.Writer) Result {
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "── Confirmation required ─────────────────────────────")
	fmt.Fprintf(out, "Command: %s\n", p.Command)
	if p.Reason != "" {
		fmt.Fprintf(out, "Reason:  %s\n", p.Reason)
	}
	fmt.Fprintln(out, "")

	reader := bufio.NewReader(in)
	for {
		fmt.Fprint(out, "Run it anyway? [a]pprove once / [d]eny: ")
		input, err := reader.ReadString('\n')
		if err != nil {
			return Result{Approved: false, UserAction: "error_reading_input"}
		}
		switch strings.TrimSpace(strings.ToLower(input)) {
		case "a", "approve", "y", "yes":
			return Result{Approved: true, UserAction: "approve_once"}
		case "d", "deny", "n", "no":
			return Result{Approved: false, UserAction: "deny"}
		default:
			fmt.Fprintln(out, "Please answer 'a' or 'd'.")
		}
	}
}
