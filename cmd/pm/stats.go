package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show library statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOut, _ := cmd.Flags().GetBool("json")

		stats, err := apiClient().Stats(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(stats)
		}

		fmt.Printf("Prompts:    %d\n", stats.TotalPrompts)
		fmt.Printf("Categories: %d\n", stats.TotalCategories)
		fmt.Printf("Tags:       %d\n", stats.TotalTags)
		fmt.Printf("Total uses: %d\n", stats.TotalUsage)

		if len(stats.MostUsed) > 0 {
			fmt.Println("\nMost used:")
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			for _, p := range stats.MostUsed {
				fmt.Fprintf(w, "  %s\t%d uses\n", p.Slug, p.UsageCount)
			}
			_ = w.Flush()
		}
		if len(stats.RecentlyAdded) > 0 {
			fmt.Println("\nRecently added:")
			for _, p := range stats.RecentlyAdded {
				fmt.Printf("  %s (%s)\n", p.Slug, p.CreatedAt.Format("2006-01-02"))
			}
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().BoolP("json", "j", false, "output as JSON")
}
