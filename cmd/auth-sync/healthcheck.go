package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var healthcheckPath string

// healthcheckCmd exists for the distroless image, which has no curl.
var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Probe the local server's health endpoint",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		port := os.Getenv("PORT")
		if port == "" {
			port = "8888"
		}
		if err := runHealthcheck(fmt.Sprintf("http://127.0.0.1:%s%s", port, healthcheckPath)); err != nil {
			return fmt.Errorf("healthcheck failed: %w", err)
		}
		return nil
	},
}

func init() {
	healthcheckCmd.Flags().StringVar(&healthcheckPath, "path", "/health", "endpoint to probe (use /ready to wait for session bootstrap)")
}

// runHealthcheck performs a health check against the given URL.
func runHealthcheck(url string) error {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health endpoint returned status: %d", resp.StatusCode)
	}
	return nil
}
