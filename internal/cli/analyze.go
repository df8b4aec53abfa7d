package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gzhole/cmdgate/internal/shellparse"
)

var analyzeJSON bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze -- <command string>",
	Short: "Preview how a command parses, without any policy decision",
	Long: `Show the segments and operator chains cmdgate extracts from a command.
Nothing is executed and no policy is consulted; this is the diagnostic
entry point for understanding why a check decided the way it did.

  cmdgate analyze -- "cat file.txt | grep pattern"`,
	Args: cobra.MinimumNArgs(1),
	RunE: analyzeCommand,
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Emit the analysis as JSON")
	rootCmd.AddCommand(analyzeCmd)
}

func analyzeCommand(cmd *cobra.Command, args []string) error {
	analysis := shellparse.Analyze(strings.Join(args, " "))

	if analyzeJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(analysis)
	}

	if !analysis.OK {
		fmt.Println("unparseable or empty command")
		for _, diag := range analysis.Errors {
			fmt.Printf("  ! %s\n", diag)
		}
		return nil
	}

	fmt.Printf("%d chain(s), %d segment(s)\n", len(analysis.Chains), len(analysis.Segments))
	for i, chain := range analysis.Chains {
		op := string(chain.Operator)
		if op == "" {
			op = "start"
		}
		fmt.Printf("chain %d [%s]\n", i+1, op)
		for _, seg := range chain.Segments {
			fmt.Printf("  %s\n", seg.Text())
			fmt.Printf("    executable: %s\n", seg.Executable)
			if seg.IsPathBased {
				fmt.Printf("    path-based: %s\n", seg.ResolvedPath)
			}
		}
	}
	for _, diag := range analysis.Errors {
		fmt.Printf("  ! %s\n", diag)
	}
	return nil
}
