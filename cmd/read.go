package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/stoyan-shopov/gdbflash/pkg/util"
)

var readOutFile string

// readCmd implements spec grammar "-r addr words outfile": read a run of
// 32-bit words from target memory, writing them to a file if one is given
// or hex-dumping them to stdout otherwise.
var readCmd = &cobra.Command{
	Use:   "read <addr> <words>",
	Short: "Read words from target memory",
	Long: `Read a run of consecutive 32-bit words starting at addr and either
print them as a hex dump or, with --out, write the raw little-endian bytes
to a file.

Example:
  gdbflash read 0x20000000 64
  gdbflash read 0x08000000 128 --out image.bin`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := util.ParseHexAddress(args[0])
		if err != nil {
			return fmt.Errorf("invalid address: %w", err)
		}
		count, err := parseHexUint32(args[1])
		if err != nil {
			return fmt.Errorf("invalid word count: %w", err)
		}

		c, _, err := openSession()
		if err != nil {
			return err
		}
		defer c.Close()

		words, err := c.ReadWords(addr, int(count))
		if err != nil {
			return fmt.Errorf("reading memory: %w", err)
		}

		raw := make([]byte, len(words)*4)
		for i, w := range words {
			raw[4*i] = byte(w)
			raw[4*i+1] = byte(w >> 8)
			raw[4*i+2] = byte(w >> 16)
			raw[4*i+3] = byte(w >> 24)
		}

		if readOutFile != "" {
			if err := os.WriteFile(readOutFile, raw, 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", readOutFile, err)
			}
			printInfo("wrote %d bytes to %s\n", len(raw), readOutFile)
			return nil
		}

		util.HexDump(raw, addr)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(readCmd)
	readCmd.Flags().StringVar(&readOutFile, "out", "", "write raw bytes to this file instead of hex-dumping to stdout")
}
