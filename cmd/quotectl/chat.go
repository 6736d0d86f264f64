package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/capitalize-ai/quote-assistant/internal/conversation"
	"github.com/capitalize-ai/quote-assistant/internal/extract"
	"github.com/capitalize-ai/quote-assistant/internal/model"
	"github.com/capitalize-ai/quote-assistant/internal/service"
	"github.com/capitalize-ai/quote-assistant/internal/store"
)

var chatUserKey string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Hold a quoting conversation in the terminal",
	Long:  "Runs the conversation engine against an in-memory store without entity extraction. Type /reset to start over and /quit to leave.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		resolver, err := loadCatalog()
		if err != nil {
			return err
		}
		// Initialize conversation engine
		machine := conversation.NewMachine(resolver, newEngine(), extract.NewValidator(log), log.Named("conversation"))

		// Replies go to the terminal, events to the log
		out := cmd.OutOrStdout()
		outbox := &consoleOutbox{LogOutbox: service.NewLogOutbox(log), out: out}
		svc := service.NewQuoteService(store.NewMemoryStore(0), machine, nil, outbox, log)

		return chat(cmd.Context(), svc, cmd.InOrStdin(), out)
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatUserKey, "user", "local", "conversation key")
	rootCmd.AddCommand(chatCmd)
}

func chat(ctx context.Context, svc *service.QuoteService, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		// Skip blank lines, stop on quit
		text := strings.TrimSpace(scanner.Text())
		switch text {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		}
		if _, err := svc.HandleMessage(ctx, chatUserKey, text); err != nil {
			return err
		}
	}
}

// consoleOutbox prints replies and keeps events in the log.
type consoleOutbox struct {
	*service.LogOutbox
	out io.Writer
}

func (o *consoleOutbox) Send(ctx context.Context, msg model.OutboundMessage) error {
	_, err := fmt.Fprintf(o.out, "%s\n\n", msg.Text)
	return err
}
