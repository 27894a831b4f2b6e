package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewInspectCommand builds the inspect subcommand, which validates and
// prints a topology config without starting the runtime.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "validate a device topology config and print its contents",
		RunE: func(cmd *cobra.Command, args []string) error {
			if rootOpts.Config == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := loadConfig(rootOpts.Config)
			if err != nil {
				return err
			}
			for _, dc := range cfg.Devices {
				fmt.Fprintf(cmd.OutOrStdout(), "%-16s %-6s %s\n", dc.ID, dc.Kind, dc.Name)
			}
			return nil
		},
	}
	return cmd
}
