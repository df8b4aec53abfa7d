package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gzhole/cmdgate/internal/store"
)

var (
	policySecurity        string
	policyAsk             string
	policyAskFallback     string
	policyAutoAllowSkills bool
)

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Show or replace the security policy",
}

var policyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current policy",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		printPolicy(st.GetPolicy())
		return nil
	},
}

var policySetCmd = &cobra.Command{
	Use:   "set",
	Short: "Replace the policy",
	Long: `Replace the full policy. Unrecognized values are coerced to the most
restrictive setting rather than rejected.

  cmdgate policy set --security allowlist --ask always --ask-fallback deny`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		pol := store.Policy{
			Security:        store.SecurityMode(policySecurity),
			Ask:             store.AskMode(policyAsk),
			AskFallback:     store.AskFallback(policyAskFallback),
			AutoAllowSkills: policyAutoAllowSkills,
		}
		if err := st.SetPolicy(pol); err != nil {
			return err
		}
		printPolicy(st.GetPolicy())
		return nil
	},
}

func printPolicy(pol store.Policy) {
	fmt.Printf("security:          %s\n", pol.Security)
	fmt.Printf("ask:               %s\n", pol.Ask)
	fmt.Printf("ask_fallback:      %s\n", pol.AskFallback)
	fmt.Printf("auto_allow_skills: %t\n", pol.AutoAllowSkills)
}

func init() {
	policySetCmd.Flags().StringVar(&policySecurity, "security", string(store.SecurityAllowlist), "Security mode: deny, allowlist or full")
	policySetCmd.Flags().StringVar(&policyAsk, "ask", string(store.AskOff), "Confirmation behavior: off or always")
	policySetCmd.Flags().StringVar(&policyAskFallback, "ask-fallback", string(store.FallbackDeny), "Non-interactive ask resolution: allow or deny")
	policySetCmd.Flags().BoolVar(&policyAutoAllowSkills, "auto-allow-skills", false, "Allow trusted-extension commands to bypass the allowlist")

	policyCmd.AddCommand(policyShowCmd, policySetCmd)
	rootCmd.AddCommand(policyCmd)
}
