package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	chatmodel "github.com/zhouzirui/digibook-bot/internal/model/chat"
	"github.com/zhouzirui/digibook-bot/internal/render"
	"github.com/zhouzirui/digibook-bot/internal/service/chat"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation (type /quit to leave)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, client, renderer, err := setup()
		if err != nil {
			return err
		}

		conv := chat.NewConversation(client, chat.Options{
			Greeting:    cfg.Widget.Greeting,
			ApologyText: cfg.Widget.ApologyText,
		})
		defer conv.Close()

		out := cmd.OutOrStdout()
		updates, unsubscribe := conv.Subscribe()
		defer unsubscribe()

		for _, msg := range conv.Transcript() {
			fmt.Fprintln(out, renderer.Message(msg))
		}

		ctx := cmd.Context()
		scanner := bufio.NewScanner(cmd.InOrStdin())
		for {
			fmt.Fprint(out, "> ")
			if !scanner.Scan() {
				fmt.Fprintln(out)
				return scanner.Err()
			}

			line := scanner.Text()
			if strings.TrimSpace(line) == "/quit" {
				return nil
			}

			done := make(chan error, 1)
			go func() {
				done <- conv.Send(ctx, line)
			}()
			if err := follow(out, renderer, updates, done); err != nil {
				return err
			}
		}
	},
}

// follow prints updates live until the send completes, then drains what is
// left so the next prompt comes after the answer.
func follow(out io.Writer, renderer *render.Renderer, updates <-chan chat.Update, done <-chan error) error {
	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			printUpdate(out, renderer, update)
		case err := <-done:
			for {
				select {
				case update, ok := <-updates:
					if !ok {
						return err
					}
					printUpdate(out, renderer, update)
				default:
					return err
				}
			}
		}
	}
}

func printUpdate(out io.Writer, renderer *render.Renderer, update chat.Update) {
	switch update.Kind {
	case chat.UpdateNotification:
		if update.Notification != "" {
			fmt.Fprintln(out, renderer.Notification(update.Notification))
		}
	case chat.UpdateMessage:
		// The user's own line is already on screen.
		if update.Message.Sender != chatmodel.SenderUser {
			fmt.Fprintln(out, renderer.Message(update.Message))
		}
	}
}
