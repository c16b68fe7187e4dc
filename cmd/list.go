package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"github.com/stoyan-shopov/gdbflash/pkg/devices"
)

// listCmd implements spec grammar "-l": list every registered device and,
// with --annotate, its memory map in the [VX-...] record format a
// controlling GUI/TUI parses.
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List supported devices and their memory maps",
	RunE: func(cmd *cobra.Command, args []string) error {
		names := devices.Default.Names()
		sort.Strings(names)
		for _, name := range names {
			d, _ := devices.Default.Lookup(name)
			printInfo("%s\n", d.Name)
			if annotateFlag {
				fmt.Printf("[VX-DEVLIST-ENTRY]%s\n", d.Name)
				for _, area := range d.RAMAreas {
					fmt.Printf("[VX-RAM-AREA]\t\t%#x\t\t%#x\n", area.Start, area.Len)
				}
				for _, area := range d.FlashAreas {
					fmt.Printf("[VX-FLASH-AREA]\t\t%#x\t\t%#x\n", area.Start, area.Len)
				}
				continue
			}
			for _, area := range d.RAMAreas {
				printInfo("  ram   %#010x .. %#010x\n", area.Start, area.Start+area.Len)
			}
			for _, area := range d.FlashAreas {
				printInfo("  flash %#010x .. %#010x (%d sectors)\n", area.Start, area.Start+area.Len, len(area.Sectors))
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
