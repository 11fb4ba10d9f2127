package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/promptstash/promptstash/pkg/client"
	"github.com/spf13/cobra"
)

var addCmd = &cobra.Command{
	Use:   "add <slug>",
	Short: "Add a new prompt",
	Long: `Add a new prompt. Content comes from --content, --from-file, or stdin.

Examples:
  pm add my-prompt --title "My Prompt" --content "Hello {{name}}"
  pm add my-prompt --title "My Prompt" --from-file prompt.txt
  echo "Hello world" | pm add my-prompt --title "My Prompt"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		title, _ := cmd.Flags().GetString("title")
		content, _ := cmd.Flags().GetString("content")
		fromFile, _ := cmd.Flags().GetString("from-file")
		description, _ := cmd.Flags().GetString("description")
		category, _ := cmd.Flags().GetString("category")
		tags, _ := cmd.Flags().GetString("tags")
		sourceURL, _ := cmd.Flags().GetString("source-url")

		switch {
		case content != "":
		case fromFile != "":
			data, err := os.ReadFile(fromFile)
			if err != nil {
				return fmt.Errorf("read %s: %w", fromFile, err)
			}
			content = string(data)
		default:
			content = readStdin()
			if content == "" {
				return fmt.Errorf("no content: use --content, --from-file, or pipe stdin")
			}
		}

		if title == "" {
			title = args[0]
		}

		p, err := apiClient().CreatePrompt(cmd.Context(), client.CreateRequest{
			Slug:        args[0],
			Title:       title,
			Content:     content,
			Description: description,
			Category:    category,
			Tags:        splitTags(tags),
			SourceURL:   sourceURL,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Created prompt '%s' (version %d)\n", p.Slug, p.Version)
		return nil
	},
}

var getCmd = &cobra.Command{
	Use:   "get <slug>",
	Short: "Get a prompt by slug",
	Long: `Get a prompt by slug, optionally rendering template variables.

Examples:
  pm get my-prompt
  pm get my-prompt --json
  pm get greeting --var name=Ada --var topic=coding

  # Read stdin into a template variable
  cat error.txt | pm get explain-error --stdin error
  cat error.txt | pm get explain-error --var error=-

  # Append stdin to the prompt output
  cat error.txt | pm get explain-error --append`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOut, _ := cmd.Flags().GetBool("json")
		yamlOut, _ := cmd.Flags().GetBool("yaml")
		varFlags, _ := cmd.Flags().GetStringArray("var")
		stdinVar, _ := cmd.Flags().GetString("stdin")
		appendStdin, _ := cmd.Flags().GetBool("append")
		noUsage, _ := cmd.Flags().GetBool("no-usage")

		stdinContent := readStdin()

		bindings := map[string]interface{}{}
		if stdinVar != "" {
			if stdinContent == "" {
				return fmt.Errorf("--stdin requires piped input")
			}
			bindings[stdinVar] = strings.TrimSpace(stdinContent)
		}
		for _, v := range varFlags {
			key, value, ok := strings.Cut(v, "=")
			if !ok {
				return fmt.Errorf("invalid variable format %q (expected key=value)", v)
			}
			if value == "-" {
				if stdinContent == "" {
					return fmt.Errorf("variable %q requires piped input", v)
				}
				value = strings.TrimSpace(stdinContent)
			}
			bindings[key] = value
		}

		c := apiClient()
		var content string
		if len(bindings) > 0 {
			res, err := c.Render(cmd.Context(), args[0], bindings)
			if err != nil {
				return err
			}
			content = res.Content
		} else {
			p, err := c.GetPrompt(cmd.Context(), args[0], !noUsage)
			if err != nil {
				return err
			}
			content = p.Content
			if jsonOut {
				return printJSON(p)
			}
			if yamlOut {
				return printYAML(p)
			}
		}

		if appendStdin && stdinContent != "" {
			content = strings.TrimRight(content, "\n") + "\n\n" + stdinContent
		}
		printPlain(content)
		return nil
	},
}

var updateCmd = &cobra.Command{
	Use:   "update <slug>",
	Short: "Update a prompt",
	Long: `Update prompt fields. Only flags you pass are changed; updating content
records the previous content in the version history.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var req client.UpdateRequest

		setIfChanged := func(name string, dest **string) {
			if cmd.Flags().Changed(name) {
				v, _ := cmd.Flags().GetString(name)
				*dest = &v
			}
		}
		setIfChanged("title", &req.Title)
		setIfChanged("content", &req.Content)
		setIfChanged("description", &req.Description)
		setIfChanged("category", &req.Category)
		setIfChanged("source-url", &req.SourceURL)

		if cmd.Flags().Changed("from-file") {
			fromFile, _ := cmd.Flags().GetString("from-file")
			data, err := os.ReadFile(fromFile)
			if err != nil {
				return fmt.Errorf("read %s: %w", fromFile, err)
			}
			content := string(data)
			req.Content = &content
		}
		if cmd.Flags().Changed("tags") {
			raw, _ := cmd.Flags().GetString("tags")
			tags := splitTags(raw)
			req.Tags = &tags
		}
		req.ChangeNote, _ = cmd.Flags().GetString("note")

		p, err := apiClient().UpdatePrompt(cmd.Context(), args[0], req)
		if err != nil {
			return err
		}
		fmt.Printf("Updated prompt '%s' (version %d)\n", p.Slug, p.Version)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <slug>",
	Short: "Delete a prompt and its version history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		if !force {
			fmt.Printf("Delete prompt '%s' and all its versions? [y/N] ", args[0])
			var answer string
			_, _ = fmt.Scanln(&answer)
			if strings.ToLower(answer) != "y" {
				fmt.Println("Aborted.")
				return nil
			}
		}
		if err := apiClient().DeletePrompt(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted prompt '%s'\n", args[0])
		return nil
	},
}

func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	var tags []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func init() {
	addCmd.Flags().StringP("title", "t", "", "prompt title (defaults to the slug)")
	addCmd.Flags().StringP("content", "c", "", "prompt content")
	addCmd.Flags().StringP("from-file", "f", "", "read content from file")
	addCmd.Flags().StringP("description", "d", "", "description")
	addCmd.Flags().String("category", "", "category")
	addCmd.Flags().String("tags", "", "comma-separated tags")
	addCmd.Flags().StringP("source-url", "u", "", "source URL")

	getCmd.Flags().BoolP("json", "j", false, "output as JSON")
	getCmd.Flags().BoolP("yaml", "y", false, "output as YAML")
	getCmd.Flags().StringArrayP("var", "v", nil, "template variable (key=value, key=- reads stdin)")
	getCmd.Flags().StringP("stdin", "i", "", "read stdin into this variable name")
	getCmd.Flags().BoolP("append", "a", false, "append stdin to the prompt output")
	getCmd.Flags().Bool("no-usage", false, "don't increment the usage count")

	updateCmd.Flags().StringP("title", "t", "", "new title")
	updateCmd.Flags().StringP("content", "c", "", "new content")
	updateCmd.Flags().StringP("from-file", "f", "", "read new content from file")
	updateCmd.Flags().StringP("description", "d", "", "new description")
	updateCmd.Flags().String("category", "", "new category")
	updateCmd.Flags().String("tags", "", "comma-separated tags (replaces existing)")
	updateCmd.Flags().StringP("source-url", "u", "", "new source URL")
	updateCmd.Flags().String("note", "", "change note for the version history")

	deleteCmd.Flags().BoolP("force", "f", false, "skip confirmation")
}
