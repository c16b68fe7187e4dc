package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// contCmd implements spec grammar "--cont": resume the target without
// waiting for it to halt again.
var contCmd = &cobra.Command{
	Use:   "cont",
	Short: "Resume the target",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, _, err := openSession()
		if err != nil {
			return err
		}
		defer c.Close()

		if err := c.Continue(); err != nil {
			return fmt.Errorf("resuming target: %w", err)
		}
		printInfo("target resumed\n")
		return nil
	},
}

// haltCmd implements spec grammar "--stop/--halt": send a break and wait
// for the resulting stop-reply.
var haltCmd = &cobra.Command{
	Use:     "halt",
	Aliases: []string{"stop"},
	Short:   "Interrupt the target and wait for it to halt",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, _, err := openSession()
		if err != nil {
			return err
		}
		defer c.Close()

		if err := c.SendBreak(); err != nil {
			return fmt.Errorf("sending break: %w", err)
		}
		reply, err := c.WaitHalted()
		if err != nil {
			return fmt.Errorf("waiting for halt: %w", err)
		}
		printInfo("target halted: %s\n", reply)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(contCmd)
	rootCmd.AddCommand(haltCmd)
}
