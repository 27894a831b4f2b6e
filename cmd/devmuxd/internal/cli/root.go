// Package cli implements devmuxd's cobra command surface.
package cli

import (
	"github.com/spf13/cobra"
)

// RootOptions holds flags shared by every subcommand.
type RootOptions struct {
	Verbose bool
	Config  string
}

// NewRootCommand builds the devmuxd root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "devmuxd",
		Short: "devmuxd mediates client access to register-I/O devices",
		Long:  "devmuxd runs the device-mediation runtime: transaction scheduling, trigger-fence evaluation, and per-bus arbitration for a configured set of register-I/O devices.",
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug-level logging")
	cmd.PersistentFlags().StringVar(&opts.Config, "config", "", "path to the device topology config file")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewInspectCommand(opts))

	return cmd
}
