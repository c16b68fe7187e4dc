package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/stoyan-shopov/gdbflash/pkg/hexfile"
	"github.com/stoyan-shopov/gdbflash/pkg/util"
)

var (
	flashNoErase  bool
	flashNoVerify bool
)

// flashCmd implements spec grammar "-x hexfile": program an entire image
// from an Intel HEX file, region by region.
var flashCmd = &cobra.Command{
	Use:   "flash <hexfile>",
	Short: "Program flash memory from an Intel HEX file",
	Long: `Program the target's flash memory from an Intel HEX file.

For each region in the file, the covering flash sectors are unlocked and
erased (unless --no-erase is given), the region's words are programmed
through the device's flash-write helper, and the written bytes are read
back and compared against the source (unless --no-verify is given).

This is a destructive operation that cannot be undone.

Example:
  gdbflash flash firmware.hex`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		regions, err := hexfile.Load(args[0])
		if err != nil {
			return err
		}
		if len(regions) == 0 {
			return fmt.Errorf("%s contains no data records", args[0])
		}

		if !util.ConfirmDanger(fmt.Sprintf("program %d region(s) from %s into flash", len(regions), args[0])) {
			printInfo("operation cancelled.\n")
			return nil
		}

		c, d, err := openSession()
		if err != nil {
			return err
		}
		defer c.Close()

		if d.FlashProgramWords == nil {
			return fmt.Errorf("device %q does not support flash programming", d.Name)
		}

		totalBytes := 0
		for _, r := range regions {
			totalBytes += len(r.Bytes)
		}
		written := 0

		for _, r := range regions {
			words := hexfile.WordsForFlash(r)
			regionLen := uint32(len(words) * 4)

			if !flashNoErase {
				area, _, _, err := d.FlashAreaInfo(r.Addr, regionLen)
				if err != nil {
					return fmt.Errorf("locating flash area for %#x: %w", r.Addr, err)
				}
				if d.FlashUnlockArea != nil {
					if err := d.FlashUnlockArea(d, c, area); err != nil {
						return fmt.Errorf("unlocking flash: %w", err)
					}
				}
				if err := d.EraseArea(c, r.Addr, regionLen); err != nil {
					return fmt.Errorf("erasing [%#x, %#x): %w", r.Addr, r.Addr+regionLen, err)
				}
			}

			if err := d.FlashProgramWords(d, c, r.Addr, words); err != nil {
				return fmt.Errorf("programming %#x: %w", r.Addr, err)
			}

			written += len(r.Bytes)
			annotateLine("[VX-FLASH-WRITE-PROGRESS]", fmt.Sprintf("%d", written), fmt.Sprintf("%d", totalBytes))

			if !flashNoVerify {
				readBack, err := c.ReadWords(r.Addr, len(words))
				if err != nil {
					return fmt.Errorf("reading back %#x for verification: %w", r.Addr, err)
				}
				for i := range words {
					if readBack[i] != words[i] {
						return fmt.Errorf("verification failed at %#x: wrote %#08x, read %#08x",
							r.Addr+uint32(i*4), words[i], readBack[i])
					}
				}
			}
		}

		printInfo("programmed %d byte(s) across %d region(s)\n", totalBytes, len(regions))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(flashCmd)
	flashCmd.Flags().BoolVar(&flashNoErase, "no-erase", false, "skip erasing flash before programming")
	flashCmd.Flags().BoolVar(&flashNoVerify, "no-verify", false, "skip read-back verification after programming")
}
