package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/stoyan-shopov/gdbflash/pkg/util"
)

// writeCmd implements spec grammar "-w addr infile": write the raw bytes
// of a file into target RAM at addr, packed as little-endian 32-bit words.
var writeCmd = &cobra.Command{
	Use:   "write <addr> <infile>",
	Short: "Write a file's bytes into target memory",
	Long: `Write the raw contents of infile into target memory starting at addr.
The file length is padded up to a whole number of words with zero bytes.

Example:
  gdbflash write 0x20000000 payload.bin`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := util.ParseHexAddress(args[0])
		if err != nil {
			return fmt.Errorf("invalid address: %w", err)
		}

		data, err := util.ReadFile(args[1])
		if err != nil {
			return err
		}

		words := packWords(data)

		c, _, err := openSession()
		if err != nil {
			return err
		}
		defer c.Close()

		if err := c.WriteWords(addr, words); err != nil {
			return fmt.Errorf("writing memory: %w", err)
		}
		printInfo("wrote %d bytes to %#x\n", len(data), addr)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(writeCmd)
}

// packWords packs bytes into little-endian 32-bit words, zero-padding the
// final word if data's length is not a multiple of 4.
func packWords(data []byte) []uint32 {
	n := (len(data) + 3) / 4
	words := make([]uint32, n)
	for i := 0; i < n; i++ {
		var w uint32
		for b := 0; b < 4; b++ {
			idx := i*4 + b
			if idx < len(data) {
				w |= uint32(data[idx]) << (8 * b)
			}
		}
		words[i] = w
	}
	return words
}
