package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gzhole/cmdgate/internal/confirm"
	"github.com/gzhole/cmdgate/internal/engine"
	"github.com/gzhole/cmdgate/internal/logger"
	"github.com/gzhole/cmdgate/internal/store"
)

var checkSkillOrigin bool

var checkCmd = &cobra.Command{
	Use:   "check -- <command string>",
	Short: "Decide whether a command may run",
	Long: `Classify a proposed command without executing it. The command is allowed
only if every segment is a safe bin, matches an allowlist pattern, or is
covered by the skill bypass. With ask=always, a denial can be rescued by
interactive confirmation; the exit code is 0 when allowed, 1 when denied.

  cmdgate check -- ls -la
  cmdgate check --skill -- npm run build`,
	Args: cobra.MinimumNArgs(1),
	RunE: checkCommand,
}

func init() {
	checkCmd.Flags().BoolVar(&checkSkillOrigin, "skill", false, "Mark the command as originating from a trusted extension")
	rootCmd.AddCommand(checkCmd)
}

func checkCommand(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}

	command := strings.Join(args, " ")
	eng := engine.New(st)
	result := eng.CheckWith(command, engine.CheckOptions{SkillOrigin: checkSkillOrigin})

	userAction := ""
	allowed := result.Allowed
	if !allowed {
		pol := st.GetPolicy()
		if pol.Ask == store.AskAlways {
			answer := confirm.Ask(confirm.Prompt{
				Command: command,
				Reason:  result.Reason,
			}, pol.AskFallback == store.FallbackAllow)
			allowed = answer.Approved
			userAction = answer.UserAction
		}
	}

	logAudit(logger.AuditEvent{
		Command:         command,
		Allowed:         allowed,
		Reason:          result.Reason,
		MatchedPatterns: matchedPatterns(result),
		SkillOrigin:     checkSkillOrigin,
		UserAction:      userAction,
	})

	if allowed {
		fmt.Printf("ALLOW: %s\n", result.Reason)
		if userAction != "" {
			fmt.Printf("  (operator: %s)\n", userAction)
		}
		return nil
	}

	fmt.Printf("DENY: %s\n", result.Reason)
	os.Exit(1)
	return nil
}

func matchedPatterns(result engine.ApprovalResult) []string {
	patterns := make([]string, 0, len(result.MatchedEntries))
	for _, entry := range result.MatchedEntries {
		patterns = append(patterns, entry.Pattern)
	}
	return patterns
}

// logAudit appends the decision to the audit trail. Audit failures are
// reported but never change the verdict.
func logAudit(event logger.AuditEvent) {
	path := auditPath
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "cmdgate: audit log disabled: %v\n", err)
			return
		}
		dir := filepath.Join(homeDir, store.DefaultConfigDir)
		if err := os.MkdirAll(dir, 0700); err != nil {
			fmt.Fprintf(os.Stderr, "cmdgate: audit log disabled: %v\n", err)
			return
		}
		path = filepath.Join(dir, "audit.jsonl")
	}

	audit, err := logger.New(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cmdgate: audit log disabled: %v\n", err)
		return
	}
	defer audit.Close()

	if err := audit.Log(event); err != nil {
		fmt.Fprintf(os.Stderr, "cmdgate: audit write failed: %v\n", err)
	}
}
