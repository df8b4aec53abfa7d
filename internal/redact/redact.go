// Package redact strips credential material from command text before it is
// written to the audit log. Proposed commands routinely embed tokens
// (export FOO=..., curl -H "Authorization: ..."), and an audit trail must
// not become a secret store.
package redact

import "regexp"

const placeholder = "[REDACTED]"

var secretPatterns = []*regexp.Regexp{
	// key=value and key: value assignments for well-known secret names
	regexp.MustCompile(`(?i)(api[_-]?key|secret[_-]?key|access[_-]?token|auth[_-]?token|password|passwd|token)\s*[=:]\s*['"]?[^\s'"]{8,}['"]?`),

	// provider token formats
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`),                              // AWS access key id
	regexp.MustCompile(`gh[pousr]_[A-Za-z0-9]{36}`),                     // GitHub tokens
	regexp.MustCompile(`xox[baprs]-[0-9]{10,13}-[0-9]{10,13}[\w-]*`),    // Slack
	regexp.MustCompile(`(?:sk|rk)_live_[0-9a-zA-Z]{24}`),                // Stripe
	regexp.MustCompile(`(?i)bearer\s+[\w.~+/-]{20,}`),                   // Authorization headers
	regexp.MustCompile(`-----BEGIN (?:RSA |EC |DSA |OPENSSH |PGP )?PRIVATE KEY-----`),

	// basic-auth credentials embedded in URLs
	regexp.MustCompile(`https?://[^:/\s]+:[^@/\s]+@`),
}

// Redact replaces anything resembling credential material with a
// placeholder.
func Redact(input string) string {
	out := input
	for _, pattern := range secretPatterns {
		out = pattern.ReplaceAllString(out, placeholder)
	}
	return out
}
