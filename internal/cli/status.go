package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cmdgate configuration summary",
	Args:  cobra.NoArgs,
	RunE:  statusCommand,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func statusCommand(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}

	binPath, err := os.Executable()
	if err != nil {
		binPath = "unknown"
	}

	pol := st.GetPolicy()
	fmt.Printf("cmdgate %s\n", Version)
	fmt.Printf("  binary:  %s\n", binPath)
	fmt.Printf("  config:  %s\n", st.Path())
	fmt.Println()
	printPolicy(pol)
	fmt.Println()
	fmt.Printf("allowlist entries: %d\n", len(st.ListAllowlist()))
	fmt.Printf("safe bins:         %d\n", len(st.ListSafeBins()))
	return nil
}
