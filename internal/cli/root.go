// Package cli is the operator-facing surface of cmdgate: checking and
// previewing commands, and managing the allowlist, safe bins and policy.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gzhole/cmdgate/internal/store"
)

var (
	configPath string
	auditPath  string
)

var rootCmd = &cobra.Command{
	Use:   "cmdgate",
	Short: "cmdgate - command-execution gatekeeper for autonomous agents",
	Long: `cmdgate decides, before any execution occurs, whether a shell command
proposed by an autonomous agent may run. Commands are parsed into segments,
checked against intrinsically-trusted safe bins and operator-approved
allowlist patterns, and denied by default. cmdgate never executes anything
itself.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config YAML file (default: ~/.cmdgate/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&auditPath, "audit", "", "Path to audit log file (default: ~/.cmdgate/audit.jsonl)")
}

func Execute() error {
	return rootCmd.Execute()
}

// openStore resolves the config path and opens the policy store.
func openStore() (*store.Store, error) {
	path := configPath
	if path == "" {
		var err error
		path, err = store.DefaultPath()
		if err != nil {
			return nil, fmt.Errorf("resolve config path: %w", err)
		}
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	return st, nil
}
