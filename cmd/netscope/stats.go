package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var statsFlags struct {
	clientConfig
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show live traffic statistics",
	Long:  `Show the running monitor's live statistics: totals, rates, and pipeline health.`,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)

	addClientFlags(statsCmd, &statsFlags.clientConfig)
}

func runStats(cmd *cobra.Command, args []string) error {
	c, err := statsFlags.newClient()
	if err != nil {
		return err
	}

	resp, err := c.Stats()
	if err != nil {
		return err
	}

	uptime := time.Duration(resp.UptimeSeconds * float64(time.Second)).Round(time.Second)

	fmt.Printf("Uptime:        %s\n", uptime)
	fmt.Printf("Packets:       %d (%.1f/s)\n", resp.TotalPackets, resp.PacketsPerSecond)
	fmt.Printf("Total traffic: %s\n", humanize.IBytes(uint64(resp.TotalBandwidth)))
	fmt.Printf("Upload:        %s\n", humanize.IBytes(uint64(resp.TotalUpload)))
	fmt.Printf("Download:      %s\n", humanize.IBytes(uint64(resp.TotalDownload)))
	fmt.Printf("Current rate:  %s/s\n", humanize.IBytes(uint64(resp.CurrentRate)))
	fmt.Printf("Active apps:   %d\n", resp.ActiveApps)

	if resp.Pipeline != nil {
		fmt.Printf("Queue depth:   %d\n", resp.Pipeline.QueueDepth)
		fmt.Printf("Dropped:       %d\n", resp.Pipeline.Dropped)
	}
	if resp.DNSCache != nil {
		fmt.Printf("DNS cache:     %d hits, %d misses (%d entries)\n",
			resp.DNSCache.Hits, resp.DNSCache.Misses, resp.DNSCache.Size)
	}

	return nil
}
