package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/etra-web/relay/internal/relay"
)

// healthCmd represents the health command
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check relay liveness and connected-client count",
	Run:   healthHandler,
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

func healthHandler(cmd *cobra.Command, args []string) {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(relayURL + "/health")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	var health relay.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		fmt.Fprintf(os.Stderr, "Error: unexpected health response: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("status:  %s\nclients: %d\ntime:    %s\n",
		health.Status, health.Clients, health.Timestamp.Format(time.RFC3339))
}
