package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var resetFlags struct {
	clientConfig
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset live statistics",
	Long:  `Reset the running monitor's in-memory statistics. Stored history is not affected.`,
	RunE:  runReset,
}

func init() {
	rootCmd.AddCommand(resetCmd)

	addClientFlags(resetCmd, &resetFlags.clientConfig)
}

func runReset(cmd *cobra.Command, args []string) error {
	c, err := resetFlags.newClient()
	if err != nil {
		return err
	}

	if err := c.Reset(); err != nil {
		return err
	}

	fmt.Println("Statistics reset.")
	return nil
}
