package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gzhole/cmdgate/internal/store"
)

var (
	allowlistDescription string
	allowlistPattern     string
)

var allowlistCmd = &cobra.Command{
	Use:   "allowlist",
	Short: "Manage operator-approved command patterns",
	Long: `Allowlist entries are wildcard patterns matched against a segment's full
command text: "npm*" permits any npm invocation, "git status" permits only
that exact command. Entries should be granted by a human operator, not
self-granted by an agent.`,
}

var allowlistAddCmd = &cobra.Command{
	Use:   "add <pattern>",
	Short: "Add an allowlist pattern",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		entry, err := st.AddAllowlistEntry(args[0], allowlistDescription)
		if err != nil {
			return err
		}
		fmt.Printf("added %s  %q\n", entry.ID, entry.Pattern)
		return nil
	},
}

var allowlistListCmd = &cobra.Command{
	Use:   "list",
	Short: "List allowlist entries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		entries := st.ListAllowlist()
		if len(entries) == 0 {
			fmt.Println("allowlist is empty")
			return nil
		}
		for _, entry := range entries {
			printEntry(entry)
		}
		return nil
	},
}

var allowlistGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one allowlist entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		entry := st.GetAllowlistEntry(args[0])
		if entry == nil {
			fmt.Printf("no entry with id %s\n", args[0])
			return nil
		}
		printEntry(*entry)
		return nil
	},
}

var allowlistUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update an entry's pattern or description",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		var upd store.EntryUpdate
		if cmd.Flags().Changed("pattern") {
			upd.Pattern = &allowlistPattern
		}
		if cmd.Flags().Changed("description") {
			upd.Description = &allowlistDescription
		}
		entry, err := st.UpdateAllowlistEntry(args[0], upd)
		if err != nil {
			return err
		}
		if entry == nil {
			fmt.Printf("no entry with id %s\n", args[0])
			return nil
		}
		printEntry(*entry)
		return nil
	},
}

var allowlistRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove an allowlist entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		removed, err := st.RemoveAllowlistEntry(args[0])
		if err != nil {
			return err
		}
		if !removed {
			fmt.Printf("no entry with id %s\n", args[0])
			return nil
		}
		fmt.Printf("removed %s\n", args[0])
		return nil
	},
}

func printEntry(entry store.AllowlistEntry) {
	fmt.Printf("%s  %q", entry.ID, entry.Pattern)
	if entry.Description != "" {
		fmt.Printf("  - %s", entry.Description)
	}
	fmt.Printf("  (added %s)\n", entry.CreatedAt.Format(time.RFC3339))
}

func init() {
	allowlistAddCmd.Flags().StringVar(&allowlistDescription, "description", "", "Human-readable note for the entry")
	allowlistUpdateCmd.Flags().StringVar(&allowlistPattern, "pattern", "", "New pattern")
	allowlistUpdateCmd.Flags().StringVar(&allowlistDescription, "description", "", "New description")

	allowlistCmd.AddCommand(allowlistAddCmd, allowlistListCmd, allowlistGetCmd, allowlistUpdateCmd, allowlistRemoveCmd)
	rootCmd.AddCommand(allowlistCmd)
}
