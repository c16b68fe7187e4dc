package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/stoyan-shopov/gdbflash/pkg/util"
)

var (
	benchAddr  string
	benchWords int
	benchIters int
)

// benchCmd implements the supplemental "-t" timing benchmark: repeated
// read/write loops over a RAM window, reporting a throughput figure, in
// the spirit of the original's benchmark loop without copying its code.
var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Time a read/write loop over target RAM",
	Long: `Repeatedly reads and writes a window of target RAM and reports the
achieved throughput, useful for comparing link/probe speed across setups.

Example:
  gdbflash bench --addr 0x20000000 --words 256 --iters 20`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := util.ParseHexAddress(benchAddr)
		if err != nil {
			return fmt.Errorf("invalid address: %w", err)
		}
		if benchWords <= 0 || benchIters <= 0 {
			return fmt.Errorf("--words and --iters must be positive")
		}

		c, _, err := openSession()
		if err != nil {
			return err
		}
		defer c.Close()

		pattern := make([]uint32, benchWords)
		for i := range pattern {
			pattern[i] = uint32(i) * 0x01010101
		}

		start := time.Now()
		for i := 0; i < benchIters; i++ {
			if err := c.WriteWords(addr, pattern); err != nil {
				return fmt.Errorf("write iteration %d: %w", i, err)
			}
			if _, err := c.ReadWords(addr, benchWords); err != nil {
				return fmt.Errorf("read iteration %d: %w", i, err)
			}
		}
		elapsed := time.Since(start)

		totalBytes := int64(benchWords) * 4 * int64(benchIters) * 2
		bytesPerSec := float64(totalBytes) / elapsed.Seconds()
		printInfo("%d words x %d iterations in %s (%.1f KiB/s)\n",
			benchWords, benchIters, elapsed.Round(time.Millisecond), bytesPerSec/1024)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(benchCmd)
	benchCmd.Flags().StringVar(&benchAddr, "addr", "0x20000000", "RAM address to exercise (hex)")
	benchCmd.Flags().IntVar(&benchWords, "words", 64, "words per read/write iteration")
	benchCmd.Flags().IntVar(&benchIters, "iters", 10, "number of read/write iterations")
}
