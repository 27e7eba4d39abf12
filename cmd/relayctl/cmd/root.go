// Package cmd implements the relayctl command tree: a terminal chat session
// plus one-shot diagnostics against a running relay.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/etra-web/relay/internal/config"
)

var relayURL string

var rootCmd = &cobra.Command{
	Use:   "relayctl",
	Short: "Terminal client for the etra-web relay",
	Long: `relayctl talks to a running relay and its workflow backend.

Available commands:
  chat       Interactive chat session over the relay WebSocket
  send       Send a single message to the workflow webhook
  history    Page through stored conversation history
  health     Check relay liveness and connected-client count

Use "relayctl [command] --help" for more information about a specific command.`,
}

// Execute executes the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&relayURL, "relay", "http://localhost:3002", "Base URL of the relay server")
}

// mustConfig loads configuration for the commands that talk to the workflow
// webhook; the webhook URL is required there even though the relay server
// itself runs without one.
func mustConfig() *config.Config {
	cfg := config.New()
	if cfg.WebhookURL == "" {
		fmt.Fprintln(os.Stderr, "Error: N8N_WEBHOOK_URL is not set")
		os.Exit(1)
	}
	return cfg
}

// wsEndpoint derives the relay's WebSocket URL from its HTTP base URL.
func wsEndpoint(base string) string {
	base = strings.TrimSuffix(base, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + "/ws"
}
