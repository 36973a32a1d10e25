package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"netscope/internal/client"
)

type clientConfig struct {
	apiURL string
}

func addClientFlags(cmd *cobra.Command, cfg *clientConfig) {
	cmd.Flags().StringVar(&cfg.apiURL, "api-url", getEnv("NETSCOPE_API_URL", "http://127.0.0.1:8542"), "base URL of a running monitor's API")
}

func (cfg *clientConfig) newClient() (*client.Client, error) {
	if cfg.apiURL == "" {
		return nil, fmt.Errorf("API URL required (use --api-url flag or NETSCOPE_API_URL env var)")
	}
	return client.New(cfg.apiURL), nil
}
