package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"tripfarm/internal/api"
)

func newHealthCommand(ctx *commandContext) *cobra.Command {
	var baseURL string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Query a running server's health endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			target := strings.TrimSpace(baseURL)
			if target == "" {
				target = cfg.Client.BaseURL
			}
			endpoint := strings.TrimRight(target, "/") + api.PathHealth

			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, endpoint, nil)
			if err != nil {
				return fmt.Errorf("build request: %w", err)
			}
			client := &http.Client{Timeout: cfg.ClientTimeout()}
			resp, err := client.Do(req)
			if err != nil {
				return fmt.Errorf("contact server at %s: %w", endpoint, err)
			}
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return fmt.Errorf("read health response: %w", err)
			}
			var health api.HealthResponse
			if err := json.Unmarshal(body, &health); err != nil {
				return fmt.Errorf("unexpected health response (HTTP %d): %w", resp.StatusCode, err)
			}
			if resp.StatusCode != http.StatusOK || health.Status != "OK" {
				return fmt.Errorf("server unhealthy: HTTP %d status %q", resp.StatusCode, health.Status)
			}

			if asJSON {
				return writeJSON(cmd, health)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, health.Message)
			fmt.Fprintf(out, "Server time: %s\n", health.Timestamp)
			fmt.Fprintf(out, "Email configured: %s\n", yesNo(health.EmailConfigured))
			return nil
		},
	}

	cmd.Flags().StringVar(&baseURL, "url", "", "Server base URL (defaults to client.base_url)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the health payload as JSON")
	return cmd
}
