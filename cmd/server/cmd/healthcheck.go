package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	healthcheckCmd = &cobra.Command{
		Use:   "healthcheck",
		Short: "Check if the server is healthy",
		Long: `Performs a health check by calling the /healthz endpoint.

This command is used by Docker HEALTHCHECK to monitor container health.
It exits with code 0 if the server is healthy, non-zero otherwise.

Exit codes:
  0 - Server is healthy
  1 - Server is unhealthy or unreachable
  2 - Invalid response from server`,
		RunE: runHealthcheck,
	}

	healthcheckTimeout int
	healthcheckURL     string
)

func init() {
	healthcheckCmd.Flags().IntVar(&healthcheckTimeout, "timeout", 5, "timeout in seconds")
	healthcheckCmd.Flags().StringVar(&healthcheckURL, "url", "", "health check URL (default: http://localhost:{SERVER_PORT}/healthz)")
}

type healthResponse struct {
	Status string `json:"status"`
}

// healthCheckResult is what checkHealth reports back to the command.
type healthCheckResult struct {
	Healthy    bool
	Status     string
	StatusCode int
	Err        error
	// Malformed is true when the server answered but the body could not
	// be parsed. Maps to exit code 2.
	Malformed bool
}

// checkHealth calls the health endpoint and interprets the response.
func checkHealth(url string, timeout time.Duration) healthCheckResult {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return healthCheckResult{Err: err}
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return healthCheckResult{Err: err}
	}
	defer resp.Body.Close()

	result := healthCheckResult{StatusCode: resp.StatusCode}
	if resp.StatusCode != http.StatusOK {
		result.Err = fmt.Errorf("unhealthy: status %d", resp.StatusCode)
		return result
	}

	var health healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		result.Err = err
		result.Malformed = true
		return result
	}

	result.Status = health.Status
	if health.Status != "ok" {
		result.Err = fmt.Errorf("unhealthy: status=%s", health.Status)
		return result
	}

	result.Healthy = true
	return result
}

func runHealthcheck(cmd *cobra.Command, args []string) error {
	url := healthcheckURL
	if url == "" {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		url = fmt.Sprintf("http://localhost:%s/healthz", port)
	}

	result := checkHealth(url, time.Duration(healthcheckTimeout)*time.Second)
	if result.Healthy {
		return nil
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Health check failed: %v\n", result.Err)
	if result.Malformed {
		os.Exit(2)
	}
	os.Exit(1)
	return result.Err
}
