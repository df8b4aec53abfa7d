// Package engine is the decision core of the gate. Given a raw command
// string it parses the command, consults the policy store, and returns an
// allow/deny verdict with rationale. A command is allowed only if every
// segment in every chain is individually allowed; the verdict is
// deterministic, reporting the first failing segment in parsed order.
package engine

import (
	"fmt"
	"sync"

	"github.com/gzhole/cmdgate/internal/match"
	"github.com/gzhole/cmdgate/internal/shellparse"
	"github.com/gzhole/cmdgate/internal/store"
)

// ApprovalResult is the engine's verdict for one command.
type ApprovalResult struct {
	Allowed        bool
	Reason         string
	MatchedEntries []store.AllowlistEntry
	Analysis       shellparse.CommandAnalysis
}

// CheckOptions carries call context the engine must never infer from the
// command string itself.
type CheckOptions struct {
	// SkillOrigin marks the invocation as coming from a trusted
	// extension; with policy.AutoAllowSkills it bypasses the allowlist.
	SkillOrigin bool
}

// Stats are monotonic counters scoped to the engine's lifetime.
// TotalChecks == Allowed + Denied always holds.
type Stats struct {
	TotalChecks uint64
	Allowed     uint64
	Denied      uint64
}

type Engine struct {
	store *store.Store

	mu    sync.Mutex
	stats Stats
}

// New creates an engine over the given policy store. The conventional
// deployment shape is one engine per process, owned by the host's context.
func New(st *store.Store) *Engine {
	return &Engine{store: st}
}

// Check classifies a command proposed outside any trusted-extension
// context.
func (e *Engine) Check(command string) ApprovalResult {
	return e.CheckWith(command, CheckOptions{})
}

// CheckWith classifies a command before execution. It never returns an
// error: malformed command strings are ordinary input and resolve to
// denial.
func (e *Engine) CheckWith(command string, opts CheckOptions) ApprovalResult {
	result := e.decide(command, opts)
	e.record(result.Allowed)
	return result
}

// Analyze is the standalone diagnostic entry point; it does not touch
// policy or stats.
func (e *Engine) Analyze(command string) shellparse.CommandAnalysis {
	return shellparse.Analyze(command)
}

// Stats returns a copy of the engine's counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// ResetStats zeroes the counters, for test isolation.
func (e *Engine) ResetStats() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stats = Stats{}
}

func (e *Engine) decide(command string, opts CheckOptions) ApprovalResult {
	cfg := e.store.Snapshot()
	analysis := shellparse.Analyze(command)
	result := ApprovalResult{Analysis: analysis}

	// Full mode short-circuits everything, including unparseable input.
	if cfg.Defaults.Security == store.SecurityFull {
		result.Allowed = true
		result.Reason = "security mode is full: all commands are allowed"
		return result
	}

	if !analysis.OK {
		result.Reason = "unparseable or empty command"
		return result
	}

	// A command whose visible text can differ from its executed text is
	// never gated on that text. The parser already scanned the command;
	// its analysis is the single source of truth for threats.
	if len(analysis.Threats) > 0 {
		result.Reason = analysis.Threats[0].String()
		return result
	}

	safeBins := make(map[string]bool, len(cfg.SafeBins))
	for _, bin := range cfg.SafeBins {
		safeBins[bin] = true
	}

	matchedIDs := make(map[string]bool)
	for _, chain := range analysis.Chains {
		for _, seg := range chain.Segments {
			allowed, matches := approveSegment(seg, cfg, safeBins, opts)
			for _, entry := range matches {
				if !matchedIDs[entry.ID] {
					matchedIDs[entry.ID] = true
					result.MatchedEntries = append(result.MatchedEntries, entry)
				}
			}
			if !allowed {
				result.Reason = denyReason(seg)
				return result
			}
		}
	}

	result.Allowed = true
	result.Reason = allowReason(analysis)
	return result
}

// approveSegment applies the per-segment decision order: safe bin, then
// allowlist pattern against the segment's full command text, then the
// skill-origin bypass.
func approveSegment(seg shellparse.Segment, cfg store.Config, safeBins map[string]bool, opts CheckOptions) (bool, []store.AllowlistEntry) {
	// Path-based invocations are matched on the exact token; a safe-bin
	// name never vouches for ./name or /elsewhere/name.
	if safeBins[seg.Executable] {
		return true, nil
	}

	var matches []store.AllowlistEntry
	text := seg.Text()
	for _, entry := range cfg.Allowlist {
		if match.Matches(entry.Pattern, text) {
			matches = append(matches, entry)
		}
	}
	if len(matches) > 0 {
		return true, matches
	}

	if cfg.Defaults.AutoAllowSkills && opts.SkillOrigin {
		return true, nil
	}
	return false, nil
}

func denyReason(seg shellparse.Segment) string {
	return fmt.Sprintf("%q is not allowed: %q is not a safe binary and no allowlist pattern matches", seg.Text(), seg.Executable)
}

func allowReason(analysis shellparse.CommandAnalysis) string {
	if len(analysis.Segments) == 1 {
		return "command approved"
	}
	return fmt.Sprintf("all %d command segments approved", len(analysis.Segments))
}

func (e *Engine) record(allowed bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stats.TotalChecks++
	if allowed {
		e.stats.Allowed++
	} else {
		e.stats.Denied++
	}
}
