// gdbflash - command-line flash programmer for ARM Cortex-M targets
//
// It speaks the GDB Remote Serial Protocol over TCP to a gdbserver with a
// debug probe attached to the target, and drives memory/register access
// and per-family flash programming through that link.
package main

import (
	"fmt"
	"os"

	"github.com/stoyan-shopov/gdbflash/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
