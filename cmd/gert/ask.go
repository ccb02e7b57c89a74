package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newAskCmd() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "ask [utterance]",
		Short: "Run one turn without entering the chat UI",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.Close()

			orch, err := a.Orchestrator(cmd.Context())
			if err != nil {
				return err
			}
			resp, err := orch.RunTurn(cmd.Context(), strings.Join(args, " "), id)
			if err != nil {
				return err
			}

			if resp.Tool != nil {
				fmt.Fprintf(os.Stderr, "[tool: %s]\n", resp.Tool.Name)
			}
			fmt.Println(resp.Content)
			fmt.Fprintf(os.Stderr, "conversation: %s\n", resp.ConversationID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&id, "conversation", "c", "", "continue a conversation by id")
	return cmd
}
