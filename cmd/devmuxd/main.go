// Command devmuxd runs the device-mediation runtime: one process
// hosting every device configured in a topology file, dispatching
// client command packets against them.
package main

import (
	"fmt"
	"os"

	"github.com/tbalden/google-modules-lwis/cmd/devmuxd/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
