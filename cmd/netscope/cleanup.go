package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cleanupFlags struct {
	clientConfig
	olderThan string
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete old history records",
	Long:  `Delete stored connections older than the given age from the history database.`,
	RunE:  runCleanup,
}

func init() {
	rootCmd.AddCommand(cleanupCmd)

	addClientFlags(cleanupCmd, &cleanupFlags.clientConfig)
	cleanupCmd.Flags().StringVar(&cleanupFlags.olderThan, "older-than", "720h", "delete records older than this duration")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	c, err := cleanupFlags.newClient()
	if err != nil {
		return err
	}

	resp, err := c.Cleanup(cleanupFlags.olderThan)
	if err != nil {
		return err
	}

	fmt.Printf("Deleted %d records.\n", resp.Deleted)
	return nil
}
