package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/etra-web/relay/internal/domain"
	"github.com/etra-web/relay/internal/history"
	"github.com/etra-web/relay/internal/session"
)

// chatCmd represents the chat command
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive chat session over the relay WebSocket",
	Long: `Open an interactive session: lines you type are POSTed to the workflow
webhook, and responses relayed over the WebSocket are printed as they arrive.

In-session commands:
  /tool <id>      Arm a tool for the next message (generate-image,
                  generate-audio, edit-image); /tool off disarms it
  /attach <path>  Queue a file to send with the next message
  /files          List the queued attachments
  /rm <n>         Remove queued attachment n
  /more           Load an older page of history
  /quit           Exit`,
	Run: chatHandler,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func chatHandler(cmd *cobra.Command, args []string) {
	cfg := mustConfig()
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	client := session.NewClient(cfg, wsEndpoint(relayURL))
	pager := history.NewPager(cfg.HistoryWebhookURL, client.UserID, nil)

	client.OnMessage = func(m domain.Message) {
		printMessage(m)
		pager.Save(ctx, m)
	}
	client.OnStatus = func(id string, s session.Status) {
		if s == session.StatusError {
			fmt.Fprintf(os.Stderr, "! delivery failed for %s\n", id)
		}
	}
	client.OnTyping = func(active bool) {
		if active {
			fmt.Println("  ...")
		}
	}

	go client.Listen(ctx)

	if msgs, err := pager.LoadInitial(ctx); err == nil {
		for _, m := range msgs {
			printMessage(m)
		}
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if quit := runChatCommand(ctx, client, pager, line); quit {
				return
			}
			continue
		}

		id, err := client.Send(ctx, line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}
		pager.Save(ctx, domain.Message{
			ID:        id,
			Kind:      domain.KindText,
			Content:   line,
			Sender:    domain.SenderUser,
			UserID:    client.UserID,
			SessionID: client.SessionID,
		})
	}
}

func runChatCommand(ctx context.Context, client *session.Client, pager *history.Pager, line string) (quit bool) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true
	case "/tool":
		if len(fields) < 2 {
			fmt.Printf("Active tool: %q\n", client.State.ActiveTool())
			return false
		}
		if fields[1] == "off" {
			client.State.DeactivateTool()
			return false
		}
		if err := client.State.ActivateTool(fields[1]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return false
		}
		fmt.Printf("Armed %s\n", session.ToolDisplayName(fields[1]))
	case "/attach":
		if len(fields) < 2 {
			fmt.Fprintln(os.Stderr, "Usage: /attach <path>")
			return false
		}
		f, err := loadAttachment(fields[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return false
		}
		if err := client.State.AddAttachments(f); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return false
		}
		fmt.Printf("Queued %s (%s, %d bytes)\n", f.Name, f.MIMEType, len(f.Data))
	case "/files":
		for i, f := range client.State.Attachments() {
			fmt.Printf("%d: %s (%s, %d bytes)\n", i, f.Name, f.MIMEType, len(f.Data))
		}
	case "/rm":
		if len(fields) < 2 {
			fmt.Fprintln(os.Stderr, "Usage: /rm <n>")
			return false
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			fmt.Fprintln(os.Stderr, "Usage: /rm <n>")
			return false
		}
		client.State.RemoveAttachment(n)
	case "/more":
		msgs, err := pager.LoadMore(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return false
		}
		if len(msgs) == 0 {
			fmt.Println("No older messages.")
			return false
		}
		for _, m := range msgs {
			printMessage(m)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %s\n", fields[0])
	}
	return false
}

func printMessage(m domain.Message) {
	sender := string(m.Sender)
	if sender == "" {
		sender = string(domain.SenderBot)
	}
	fmt.Printf("[%s] %s", sender, m.Content)
	if n := len(m.Attachments); n > 0 {
		fmt.Printf(" (+%d file(s))", n)
	}
	fmt.Println()
}
