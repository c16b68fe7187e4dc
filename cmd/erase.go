package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/stoyan-shopov/gdbflash/pkg/util"
)

// eraseAreaCmd implements spec grammar "--erase-area addr len".
var eraseAreaCmd = &cobra.Command{
	Use:   "erase-area <addr> <len>",
	Short: "Erase the flash sectors covering an address range",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := util.ParseHexAddress(args[0])
		if err != nil {
			return fmt.Errorf("invalid address: %w", err)
		}
		length, err := parseHexUint32(args[1])
		if err != nil {
			return fmt.Errorf("invalid length: %w", err)
		}
		if !util.ConfirmDanger(fmt.Sprintf("erase flash [%#x, %#x)", addr, addr+length)) {
			printInfo("operation cancelled.\n")
			return nil
		}

		c, d, err := openSession()
		if err != nil {
			return err
		}
		defer c.Close()

		if err := d.EraseArea(c, addr, length); err != nil {
			return fmt.Errorf("erase-area failed: %w", err)
		}
		printInfo("erased [%#x, %#x)\n", addr, addr+length)
		return nil
	},
}

// eraseSectorCmd implements spec grammar "--erase-sector n".
var eraseSectorCmd = &cobra.Command{
	Use:   "erase-sector <n>",
	Short: "Erase a single flash sector by index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := parseHexUint32(args[0])
		if err != nil {
			return fmt.Errorf("invalid sector number: %w", err)
		}
		if !util.ConfirmDanger(fmt.Sprintf("erase flash sector %d", n)) {
			printInfo("operation cancelled.\n")
			return nil
		}

		c, d, err := openSession()
		if err != nil {
			return err
		}
		defer c.Close()

		if d.FlashEraseSector == nil {
			return fmt.Errorf("device %q does not support single-sector erase", d.Name)
		}
		if err := d.FlashEraseSector(d, c, int(n)); err != nil {
			return fmt.Errorf("erase-sector failed: %w", err)
		}
		printInfo("erased sector %d\n", n)
		return nil
	},
}

// massEraseCmd implements spec grammar "-e" (mass erase).
var massEraseCmd = &cobra.Command{
	Use:   "mass-erase",
	Short: "Erase the entire flash memory",
	Long: `Erase every declared flash sector on the device.

This is a destructive operation that cannot be undone.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !util.ConfirmDanger("erase the ENTIRE flash memory") {
			printInfo("operation cancelled.\n")
			return nil
		}

		c, d, err := openSession()
		if err != nil {
			return err
		}
		defer c.Close()

		printInfo("erasing flash...\n")
		if err := d.MassErase(c); err != nil {
			return fmt.Errorf("mass erase failed: %w", err)
		}
		printInfo("flash erased.\n")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(eraseAreaCmd)
	rootCmd.AddCommand(eraseSectorCmd)
	rootCmd.AddCommand(massEraseCmd)
}
