package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var versionsCmd = &cobra.Command{
	Use:   "versions <slug> [version]",
	Short: "Show version history, or one version's content",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOut, _ := cmd.Flags().GetBool("json")
		c := apiClient()

		if len(args) == 2 {
			version, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid version number %q", args[1])
			}
			v, err := c.GetVersion(cmd.Context(), args[0], version)
			if err != nil {
				return err
			}
			if jsonOut {
				return printJSON(v)
			}
			printPlain(v.Content)
			return nil
		}

		versions, err := c.ListVersions(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(versions)
		}
		if len(versions) == 0 {
			fmt.Println("No history yet: version 1 is the live content.")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "VERSION\tCHANGED AT\tNOTE")
		for _, v := range versions {
			fmt.Fprintf(w, "%d\t%s\t%s\n",
				v.Version, v.ChangedAt.Format("2006-01-02 15:04"), v.ChangeNote)
		}
		return w.Flush()
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore <slug> <version>",
	Short: "Restore a prompt to a previous version",
	Long: `Restore copies the historical content back into the live prompt. The
current content is snapshotted first, so a restore always creates a new
version rather than rolling history back.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		version, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid version number %q", args[1])
		}
		p, err := apiClient().RestoreVersion(cmd.Context(), args[0], version)
		if err != nil {
			return err
		}
		fmt.Printf("Restored '%s' from version %d (now version %d)\n", p.Slug, version, p.Version)
		return nil
	},
}

func init() {
	versionsCmd.Flags().BoolP("json", "j", false, "output as JSON")
}
