package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var safebinCmd = &cobra.Command{
	Use:   "safebin",
	Short: "Manage intrinsically-trusted executables",
	Long: `Safe bins are executable names treated as low-risk regardless of their
arguments. They are matched on the exact invocation token, so trusting "ls"
does not trust "./ls" or "/tmp/ls".`,
}

var safebinAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a safe bin",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		added, err := st.AddSafeBin(args[0])
		if err != nil {
			return err
		}
		if added {
			fmt.Printf("added %s\n", args[0])
		} else {
			fmt.Printf("%s is already a safe bin\n", args[0])
		}
		return nil
	},
}

var safebinRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a safe bin",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		removed, err := st.RemoveSafeBin(args[0])
		if err != nil {
			return err
		}
		if removed {
			fmt.Printf("removed %s\n", args[0])
		} else {
			fmt.Printf("%s is not a safe bin\n", args[0])
		}
		return nil
	},
}

var safebinListCmd = &cobra.Command{
	Use:   "list",
	Short: "List safe bins",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		for _, bin := range st.ListSafeBins() {
			fmt.Println(bin)
		}
		return nil
	},
}

func init() {
	safebinCmd.AddCommand(safebinAddCmd, safebinRemoveCmd, safebinListCmd)
	rootCmd.AddCommand(safebinCmd)
}
