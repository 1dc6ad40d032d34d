package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/digibook-bot/internal/model/chat"
	"github.com/zhouzirui/digibook-bot/internal/service/ask"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask one question and print the streamed answer",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, client, renderer, err := setup()
		if err != nil {
			return err
		}

		question := strings.Join(args, " ")
		out := cmd.OutOrStdout()

		var answered bool
		err = client.Ask(cmd.Context(), question, ask.HandlerFuncs{
			Notification: func(text string) {
				fmt.Fprintln(out, renderer.Notification(text))
			},
			Final: func(msg chat.Message) {
				answered = true
				fmt.Fprintln(out, renderer.Message(msg))
			},
		})
		if err != nil {
			return fmt.Errorf("ask failed: %w", err)
		}
		if !answered {
			return fmt.Errorf("the stream ended without an answer")
		}
		return nil
	},
}
