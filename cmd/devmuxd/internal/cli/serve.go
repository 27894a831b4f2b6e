package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tbalden/google-modules-lwis/internal/rlog"
	"github.com/tbalden/google-modules-lwis/registerio"
	"github.com/tbalden/google-modules-lwis/runtime"
)

// NewServeCommand builds the serve subcommand, which loads the device
// topology and blocks until interrupted.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "start the device-mediation runtime",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(rootOpts, cmd)
		},
	}
	return cmd
}

func runServe(opts *RootOptions, cmd *cobra.Command) error {
	if opts.Config == "" {
		return fmt.Errorf("--config is required")
	}

	log := rlog.NewProduction("devmuxd")
	if opts.Verbose {
		log = rlog.NewDevelopment("devmuxd")
	}
	defer log.Sync()

	cfg, err := loadConfig(opts.Config)
	if err != nil {
		return err
	}

	rt := runtime.New(log)

	// Every device gets an in-memory register map by default; a real
	// deployment would substitute i2c/spi backends here keyed by device
	// id, sourced from the same topology config's bus/address fields.
	backends := make(map[string]registerio.Backend, len(cfg.Devices))
	for _, dc := range cfg.Devices {
		backends[dc.ID] = registerio.NewMMIOBackend()
	}

	if err := rt.LoadConfig(cfg, backends); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	fmt.Fprintf(cmd.OutOrStdout(), "devmuxd serving %d device(s); press Ctrl-C to stop\n", len(cfg.Devices))

	select {
	case <-sigCh:
	case <-ctx.Done():
	}

	return rt.Close(context.Background())
}
