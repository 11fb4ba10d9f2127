package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/promptstash/promptstash/internal/domain"
	"github.com/promptstash/promptstash/pkg/client"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List prompts",
	RunE: func(cmd *cobra.Command, args []string) error {
		page, _ := cmd.Flags().GetInt("page")
		pageSize, _ := cmd.Flags().GetInt("page-size")
		category, _ := cmd.Flags().GetString("category")
		tags, _ := cmd.Flags().GetString("tags")
		sort, _ := cmd.Flags().GetString("sort")
		jsonOut, _ := cmd.Flags().GetBool("json")

		prompts, meta, err := apiClient().ListPrompts(cmd.Context(), client.ListOptions{
			Page:     page,
			PageSize: pageSize,
			Category: category,
			Tags:     splitTags(tags),
			Sort:     sort,
		})
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(prompts)
		}
		printPromptTable(prompts)
		if meta != nil {
			fmt.Printf("\nPage %d/%d (%d total)\n", meta.Page, meta.TotalPages, meta.Total)
		}
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search over title, content and description",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		category, _ := cmd.Flags().GetString("category")
		tags, _ := cmd.Flags().GetString("tags")
		jsonOut, _ := cmd.Flags().GetBool("json")

		prompts, meta, err := apiClient().ListPrompts(cmd.Context(), client.ListOptions{
			Query:    args[0],
			Category: category,
			Tags:     splitTags(tags),
		})
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(prompts)
		}
		if len(prompts) == 0 {
			fmt.Println("No prompts found.")
			return nil
		}
		printPromptTable(prompts)
		if meta != nil {
			fmt.Printf("\n%d match(es)\n", meta.Total)
		}
		return nil
	},
}

var randomCmd = &cobra.Command{
	Use:   "random",
	Short: "Pick a random prompt",
	RunE: func(cmd *cobra.Command, args []string) error {
		category, _ := cmd.Flags().GetString("category")
		jsonOut, _ := cmd.Flags().GetBool("json")

		p, err := apiClient().Random(cmd.Context(), category)
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(p)
		}
		fmt.Printf("%s — %s\n\n", p.Slug, p.Title)
		printPlain(p.Content)
		return nil
	},
}

func printPromptTable(prompts []*domain.Prompt) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SLUG\tTITLE\tCATEGORY\tTAGS\tUSES\tVER")
	for _, p := range prompts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\n",
			p.Slug, truncate(p.Title, 40), p.Category,
			strings.Join(p.Tags, ","), p.UsageCount, p.Version)
	}
	_ = w.Flush()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

func init() {
	listCmd.Flags().Int("page", 1, "page number")
	listCmd.Flags().Int("page-size", 20, "items per page (max 100)")
	listCmd.Flags().String("category", "", "filter by category")
	listCmd.Flags().String("tags", "", "filter by tags (comma-separated, match any)")
	listCmd.Flags().String("sort", "", "sort order: recent|created|used|popular|name")
	listCmd.Flags().BoolP("json", "j", false, "output as JSON")

	searchCmd.Flags().String("category", "", "filter by category")
	searchCmd.Flags().String("tags", "", "filter by tags (comma-separated, match any)")
	searchCmd.Flags().BoolP("json", "j", false, "output as JSON")

	randomCmd.Flags().String("category", "", "filter by category")
	randomCmd.Flags().BoolP("json", "j", false, "output as JSON")
}
