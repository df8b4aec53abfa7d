package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/gzhole/cmdgate/internal/store"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Export, import or reset the full configuration",
}

var configExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the full configuration to stdout as YAML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		data, err := yaml.Marshal(st.ExportConfig())
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		os.Stdout.Write(data)
		return nil
	},
}

var configImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Merge a configuration file into the current one",
	Long: `Merge a previously exported (or hand-written, possibly partial)
configuration: the policy replaces the current one when present, allowlist
entries are added or updated by id, and safe bins are unioned.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}
		var cfg store.Config
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return fmt.Errorf("parse %s: %w", args[0], err)
		}
		st, err := openStore()
		if err != nil {
			return err
		}
		if err := st.ImportConfig(cfg); err != nil {
			return err
		}
		fmt.Printf("imported %s into %s\n", args[0], st.Path())
		return nil
	},
}

var configResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore factory defaults",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		if err := st.Reset(); err != nil {
			return err
		}
		fmt.Printf("reset %s to factory defaults\n", st.Path())
		return nil
	},
}

func init() {
	configCmd.AddCommand(configExportCmd, configImportCmd, configResetCmd)
	rootCmd.AddCommand(configCmd)
}
