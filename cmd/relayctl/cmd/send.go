package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/etra-web/relay/internal/session"
)

var (
	sendFiles []string
	sendTool  string
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send [text...]",
	Short: "Send a single message to the workflow webhook",
	Long: `Send one message and exit. The text is taken from the arguments;
attachments and a tool can be added with flags.

Examples:
  relayctl send hello there
  relayctl send --file photo.png describe this image
  relayctl send --tool generate-image a cat wearing a hat`,
	Run: sendHandler,
}

func init() {
	sendCmd.Flags().StringArrayVarP(&sendFiles, "file", "f", nil, "Attach a file (repeatable)")
	sendCmd.Flags().StringVarP(&sendTool, "tool", "t", "", "Arm a tool for this message")
	rootCmd.AddCommand(sendCmd)
}

func sendHandler(cmd *cobra.Command, args []string) {
	cfg := mustConfig()
	client := session.NewClient(cfg, wsEndpoint(relayURL))

	for _, path := range sendFiles {
		f, err := loadAttachment(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if err := client.State.AddAttachments(f); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	if sendTool != "" {
		if err := client.State.ActivateTool(sendTool); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	id, err := client.Send(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Sent %s\n", id)
}
