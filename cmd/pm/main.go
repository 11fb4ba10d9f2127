package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/promptstash/promptstash/pkg/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "pm",
	Short: "Manage a library of reusable prompts",
	Long: `pm is the promptstash CLI. It stores, searches, versions and renders
reusable prompt templates through the promptstash API.

Configuration comes from flags, PM_* environment variables, or
~/.config/promptstash/config.yaml, in that order of priority.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (default http://localhost:8000)")
	rootCmd.PersistentFlags().String("api-key", "", "API key for the Authorization header")
	_ = viper.BindPFlag("api_url", rootCmd.PersistentFlags().Lookup("api-url"))
	_ = viper.BindPFlag("api_key", rootCmd.PersistentFlags().Lookup("api-key"))

	viper.SetDefault("api_url", "http://localhost:8000")
	viper.SetEnvPrefix("PM")
	viper.AutomaticEnv()

	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(filepath.Join(home, ".config", "promptstash"))
	}
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	_ = viper.ReadInConfig()

	rootCmd.AddCommand(
		addCmd, getCmd, updateCmd, deleteCmd,
		listCmd, searchCmd, randomCmd,
		versionsCmd, restoreCmd,
		noteCmd, statsCmd,
	)
}

// apiClient builds the client from the resolved configuration.
func apiClient() *client.Client {
	return client.New(viper.GetString("api_url"), viper.GetString("api_key"))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
