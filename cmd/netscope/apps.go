package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var appsFlags struct {
	clientConfig
	limit   int
	history bool
}

var appsCmd = &cobra.Command{
	Use:   "apps",
	Short: "List applications by traffic volume",
	Long:  `List the top applications ranked by bytes transferred, from the live window or from stored history.`,
	RunE:  runApps,
}

func init() {
	rootCmd.AddCommand(appsCmd)

	addClientFlags(appsCmd, &appsFlags.clientConfig)
	appsCmd.Flags().IntVarP(&appsFlags.limit, "limit", "n", 10, "maximum number of applications to show")
	appsCmd.Flags().BoolVar(&appsFlags.history, "history", false, "rank from stored history instead of the live window")
}

func runApps(cmd *cobra.Command, args []string) error {
	c, err := appsFlags.newClient()
	if err != nil {
		return err
	}

	if appsFlags.history {
		resp, err := c.HistoryApps(appsFlags.limit)
		if err != nil {
			return err
		}

		if len(resp.Apps) == 0 {
			fmt.Println("No history recorded.")
			return nil
		}

		fmt.Printf("%-24s  %-10s  %s\n", "APP", "BYTES", "CONNECTIONS")
		for _, a := range resp.Apps {
			fmt.Printf("%-24s  %-10s  %d\n", a.AppName, humanize.IBytes(uint64(a.Bytes)), a.Count)
		}

		return nil
	}

	resp, err := c.Apps(appsFlags.limit)
	if err != nil {
		return err
	}

	if len(resp.Apps) == 0 {
		fmt.Println("No traffic recorded.")
		return nil
	}

	fmt.Printf("%-24s  %-10s  %s\n", "APP", "BYTES", "PACKETS")
	for _, a := range resp.Apps {
		fmt.Printf("%-24s  %-10s  %d\n", a.AppName, humanize.IBytes(uint64(a.Bytes)), a.Packets)
	}

	return nil
}
