package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"netscope/internal/api"
)

var categoriesFlags struct {
	clientConfig
	history bool
}

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "Show traffic grouped by category",
	Long:  `Show bytes transferred per traffic category, from the live window or from stored history.`,
	RunE:  runCategories,
}

func init() {
	rootCmd.AddCommand(categoriesCmd)

	addClientFlags(categoriesCmd, &categoriesFlags.clientConfig)
	categoriesCmd.Flags().BoolVar(&categoriesFlags.history, "history", false, "group stored history instead of the live window")
}

func runCategories(cmd *cobra.Command, args []string) error {
	c, err := categoriesFlags.newClient()
	if err != nil {
		return err
	}

	var resp *api.CategoriesResponse
	if categoriesFlags.history {
		resp, err = c.HistoryCategories()
	} else {
		resp, err = c.Categories()
	}
	if err != nil {
		return err
	}

	if len(resp.Categories) == 0 {
		fmt.Println("No traffic recorded.")
		return nil
	}

	fmt.Printf("%-20s  %s\n", "CATEGORY", "BYTES")
	for _, cat := range resp.Categories {
		fmt.Printf("%-20s  %s\n", cat.Category, humanize.IBytes(uint64(cat.Bytes)))
	}

	return nil
}
