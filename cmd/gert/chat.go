package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gertlabs/gert/history"
	"github.com/gertlabs/gert/tui"
)

func runChat(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	orch, err := a.Orchestrator(ctx)
	if err != nil {
		return err
	}

	opts := tui.Options{
		Model:          a.settings.Ollama.Model,
		ConversationID: conversationID,
		Tools:          orch.Tools(),
		ShowThinking:   showThinking,
	}
	if conversationID != "" {
		conv, err := a.store.Load(ctx, conversationID)
		switch {
		case errors.Is(err, history.ErrNotFound):
			return fmt.Errorf("conversation %s not found", conversationID)
		case err != nil:
			return err
		}
		opts.Transcript = tui.TranscriptFrom(conv)
	}

	last, err := tui.Run(orch, opts)
	if err != nil {
		return err
	}
	if last != "" {
		fmt.Printf("Conversation saved as %s\n", last)
	}
	return nil
}
