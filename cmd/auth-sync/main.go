package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	envFile string
	version = "dev"
)

// rootCmd runs the server when called without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "auth-sync",
	Short: "Session synchronization service in front of Ory Kratos",
	Long: `auth-sync keeps one authoritative session state for a Kratos identity and
serves it over HTTP.

Example usage:
  auth-sync                    # Start the server (same as "auth-sync serve")
  auth-sync --env-file .env    # Load variables from a dotenv file first
  auth-sync healthcheck        # Probe a running instance (container healthcheck)`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadEnvFile(envFile)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file to load before reading the environment (default: .env if present)")
	rootCmd.AddCommand(serveCmd, healthcheckCmd)
}

// loadEnvFile reads a dotenv file without overriding variables that are
// already set. Without an explicit path a missing .env is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
