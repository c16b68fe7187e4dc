// Package cmd implements the gdbflash command-line front end: argument
// parsing, connection setup, and the printed/annotated output around the
// core GDB-RSP, ARMv7-M routine runner, and device-driver packages.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/stoyan-shopov/gdbflash/pkg/config"
	"github.com/stoyan-shopov/gdbflash/pkg/util"
)

var (
	// Global configuration instance
	cfg *config.Config

	// Global flags
	hostFlag      string
	portFlag      int
	deviceFlag    string
	quietFlag     bool
	annotateFlag  bool
	yesFlag       bool
	deviceOptions []string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "gdbflash",
	Short: "gdbflash - program ARM Cortex-M flash over a GDB-RSP connection",
	Long: `gdbflash drives an ARM Cortex-M target (STM32F0/F1/F4, NXP LPC17xx)
through a gdbserver that has a debug probe attached, speaking the GDB
Remote Serial Protocol over TCP.

It can read and write target RAM and registers, erase and program flash
sectors, program an entire image from an Intel HEX file, and list the
memory map of any supported device.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		if hostFlag != "" {
			cfg.Host = hostFlag
		}
		if portFlag != 0 {
			cfg.Port = portFlag
		}
		if deviceFlag != "" {
			cfg.Device = deviceFlag
		}

		util.AutoConfirm = yesFlag

		return nil
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen
// once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&hostFlag, "host", "", "gdbserver TCP host (default 127.0.0.1)")
	rootCmd.PersistentFlags().IntVar(&portFlag, "port", 0, "gdbserver TCP port (default 1122)")
	rootCmd.PersistentFlags().StringVar(&deviceFlag, "device", "", "target device name (see 'gdbflash list')")
	rootCmd.PersistentFlags().BoolVar(&quietFlag, "quiet", false, "suppress informational output")
	rootCmd.PersistentFlags().BoolVar(&annotateFlag, "annotate", false, "emit machine-readable [VX-...] progress and inventory lines")
	rootCmd.PersistentFlags().BoolVarP(&yesFlag, "yes", "y", false, "assume yes to all confirmation prompts (for scripted use)")
	rootCmd.PersistentFlags().StringArrayVar(&deviceOptions, "opt", nil, "device-specific option as key=value (repeatable)")

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// printInfo prints informational output, respecting --quiet.
func printInfo(format string, args ...interface{}) {
	if !quietFlag {
		fmt.Printf(format, args...)
	}
}

// printError prints an error, always, regardless of --quiet.
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}

// annotateLine emits a tab-separated annotation record when --annotate is
// set, matching the [VX-...] line formats controlling GUIs parse.
func annotateLine(tag string, fields ...string) {
	if !annotateFlag {
		return
	}
	line := tag
	for _, f := range fields {
		line += "\t" + f
	}
	fmt.Println(line)
}
