package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var noteCmd = &cobra.Command{
	Use:   "note <slug> <text>",
	Short: "Append a success or failure note to a prompt",
	Long: `Append a note recording how the prompt performed. Notes are metadata:
they never bump the version or touch the history.

Examples:
  pm note my-prompt "worked well for Go code reviews"
  pm note my-prompt --failure "hallucinates APIs on long inputs"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		failure, _ := cmd.Flags().GetBool("failure")
		kind := "success"
		if failure {
			kind = "failure"
		}

		p, err := apiClient().AddNote(cmd.Context(), args[0], kind, args[1])
		if err != nil {
			return err
		}
		fmt.Printf("Added %s note to '%s'\n", kind, p.Slug)
		return nil
	},
}

func init() {
	noteCmd.Flags().Bool("failure", false, "record a failure note instead of a success note")
}
