package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/etra-web/relay/internal/history"
)

var (
	historyUser  string
	historyPages int
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Page through stored conversation history",
	Long: `Fetch conversation history for a user from the workflow backend,
oldest page last. Each page holds up to 20 messages; --pages controls how
many pages to pull before stopping.`,
	Run: historyHandler,
}

func init() {
	historyCmd.Flags().StringVarP(&historyUser, "user", "u", "", "User id to fetch history for (required)")
	historyCmd.Flags().IntVarP(&historyPages, "pages", "p", 1, "Maximum number of pages to fetch")
	historyCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(historyCmd)
}

func historyHandler(cmd *cobra.Command, args []string) {
	cfg := mustConfig()
	pager := history.NewPager(cfg.HistoryWebhookURL, historyUser, nil)

	msgs, err := pager.LoadInitial(cmd.Context())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	for _, m := range msgs {
		printMessage(m)
	}

	for page := 1; page < historyPages && pager.HasMore(); page++ {
		older, err := pager.LoadMore(cmd.Context())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		for _, m := range older {
			printMessage(m)
		}
	}

	if pager.HasMore() {
		fmt.Println("(more history available)")
	}
}
