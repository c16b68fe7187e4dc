package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const (
	regXPSRWire    = 16
	regMSPWire     = 17
	regPSPWire     = 18
	regCompositeWire = 19
)

// regsCmd implements the supplemental "--regs" register dump: R0-R15,
// xPSR, MSP, PSP, and the CONTROL/FAULTMASK/BASEPRI/PRIMASK composite
// register, printed four per line.
var regsCmd = &cobra.Command{
	Use:   "regs",
	Short: "Dump the target's register file",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, _, err := openSession()
		if err != nil {
			return err
		}
		defer c.Close()

		perLine := 0
		printReg := func(name string, value uint32) {
			fmt.Printf("%s: %#08x  ", name, value)
			perLine++
			if perLine == 4 {
				fmt.Println()
				perLine = 0
			}
		}

		for i := 0; i < 16; i++ {
			v, err := c.ReadReg(i)
			if err != nil {
				return fmt.Errorf("reading r%d: %w", i, err)
			}
			printReg(fmt.Sprintf("r%d", i), v)
		}

		xpsr, err := c.ReadReg(regXPSRWire)
		if err != nil {
			return fmt.Errorf("reading xpsr: %w", err)
		}
		printReg("xpsr", xpsr)

		msp, err := c.ReadReg(regMSPWire)
		if err != nil {
			return fmt.Errorf("reading msp: %w", err)
		}
		printReg("msp", msp)

		psp, err := c.ReadReg(regPSPWire)
		if err != nil {
			return fmt.Errorf("reading psp: %w", err)
		}
		printReg("psp", psp)

		composite, err := c.ReadReg(regCompositeWire)
		if err != nil {
			return fmt.Errorf("reading control/faultmask/basepri/primask: %w", err)
		}
		printReg("control", composite>>24)
		printReg("faultmask", (composite>>16)&0xff)
		printReg("basepri", (composite>>8)&0xff)
		printReg("primask", composite&0xff)

		if perLine != 0 {
			fmt.Println()
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(regsCmd)
}
