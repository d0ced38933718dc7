// Package main provides the entry point for the Kitchen web frontend. The
// frontend renders server-side HTML with htmx and talks to the recipe API
// backend over HTTP.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "kitchen",
	Short: "Recipe web frontend",
	Long: `Kitchen serves the recipe web app: the chat assistant, recipe feed,
meal planner, medical recipe generator, magazine and kids meal browser.
Recipe data comes from the recipe API backend configured under api.base_url.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(configPath)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(configPath)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default is ./config.yaml)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(newProbeCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
