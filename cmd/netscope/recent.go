package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var recentFlags struct {
	clientConfig
	limit int
}

var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "Show recent connections",
	Long:  `Show the most recent enriched connections from the live window, newest first.`,
	RunE:  runRecent,
}

func init() {
	rootCmd.AddCommand(recentCmd)

	addClientFlags(recentCmd, &recentFlags.clientConfig)
	recentCmd.Flags().IntVarP(&recentFlags.limit, "limit", "n", 20, "maximum number of connections to show")
}

func runRecent(cmd *cobra.Command, args []string) error {
	c, err := recentFlags.newClient()
	if err != nil {
		return err
	}

	resp, err := c.Recent(recentFlags.limit)
	if err != nil {
		return err
	}

	if len(resp.Connections) == 0 {
		fmt.Println("No connections recorded.")
		return nil
	}

	fmt.Printf("%-8s  %-20s  %-32s  %-16s  %-5s  %s\n", "TIME", "APP", "DESTINATION", "CATEGORY", "PROTO", "SIZE")
	for _, conn := range resp.Connections {
		dest := conn.Hostname
		if dest == "" {
			dest = conn.DstIP
		}
		ts, _ := time.Parse(time.RFC3339, conn.Timestamp)
		fmt.Printf("%-8s  %-20s  %-32s  %-16s  %-5s  %s\n",
			ts.Format("15:04:05"), conn.AppName, dest, conn.Category, conn.Protocol,
			humanize.IBytes(uint64(conn.Size)))
	}

	return nil
}
