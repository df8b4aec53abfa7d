package store

import "time"

// SecurityMode controls whether anything beyond safe bins and the allowlist
// may run. "deny" and "allowlist" are synonyms at the decision layer; "full"
// allows every command unconditionally.
type SecurityMode string

const (
	SecurityDeny      SecurityMode = "deny"
	SecurityAllowlist SecurityMode = "allowlist"
	SecurityFull      SecurityMode = "full"
)

// AskMode controls whether a denied command may be rescued by interactive
// confirmation at the calling surface.
type AskMode string

const (
	AskOff    AskMode = "off"
	AskAlways AskMode = "always"
)

// AskFallback is the resolution used when confirmation is requested but no
// interactive operator is available.
type AskFallback string

const (
	FallbackAllow AskFallback = "allow"
	FallbackDeny  AskFallback = "deny"
)

// Policy is the persisted security posture.
type Policy struct {
	Security        SecurityMode `yaml:"security"`
	Ask             AskMode      `yaml:"ask"`
	AskFallback     AskFallback  `yaml:"ask_fallback"`
	AutoAllowSkills bool         `yaml:"auto_allow_skills"`
}

// normalize coerces unknown enum values, which arrive from persisted or
// imported configuration across a trust boundary, to the most restrictive
// behavior. A gate that fails open is a security bug.
func (p Policy) normalize() Policy {
	switch p.Security {
	case SecurityDeny, SecurityAllowlist, SecurityFull:
	default:
		p.Security = SecurityDeny
	}
	switch p.Ask {
	case AskOff, AskAlways:
	default:
		p.Ask = AskOff
	}
	switch p.AskFallback {
	case FallbackAllow, FallbackDeny:
	default:
		p.AskFallback = FallbackDeny
	}
	return p
}

// AllowlistEntry is an operator-approved wildcard pattern permitting
// matching commands to bypass default-deny. ID and CreatedAt are assigned
// on add and never change.
type AllowlistEntry struct {
	ID          string    `yaml:"id"`
	Pattern     string    `yaml:"pattern"`
	Description string    `yaml:"description,omitempty"`
	CreatedAt   time.Time `yaml:"created_at"`
}

// EntryUpdate carries the mutable fields of an allowlist entry; nil fields
// are left untouched.
type EntryUpdate struct {
	Pattern     *string
	Description *string
}

// Config is the full persisted configuration, exported and imported as one
// unit.
type Config struct {
	Defaults  Policy           `yaml:"defaults"`
	Allowlist []AllowlistEntry `yaml:"allowlist"`
	SafeBins  []string         `yaml:"safe_bins"`
}

// DefaultConfig returns the factory configuration: allowlist security with
// a read-only set of intrinsically low-risk executables.
func DefaultConfig() Config {
	return Config{
		Defaults: Policy{
			Security:        SecurityAllowlist,
			Ask:             AskOff,
			AskFallback:     FallbackDeny,
			AutoAllowSkills: false,
		},
		SafeBins: []string{
			"cat", "date", "df", "du", "echo", "env", "file", "grep",
			"head", "id", "ls", "printf", "ps", "pwd", "sort", "stat",
			"tail", "true", "uname", "uniq", "uptime", "wc", "which",
			"whoami",
		},
	}
}
