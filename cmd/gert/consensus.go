package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newConsensusCmd() *cobra.Command {
	var super bool
	var backend string
	cmd := &cobra.Command{
		Use:   "consensus [prompt]",
		Short: "Ask every consulted model directly",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			prompt := strings.Join(args, " ")
			panel := a.Panel(ctx)

			switch {
			case backend != "":
				reply := panel.Ask(ctx, backend, prompt)
				if reply.Failed() {
					return reply.Err
				}
				fmt.Println(reply.Text)
			case super:
				report := panel.Superconsensus(ctx, prompt)
				fmt.Print(report.Text())
				if report.ScratchFile != "" {
					fmt.Printf("\nSaved to %s\n", report.ScratchFile)
				}
			default:
				bundle := panel.Consensus(ctx, prompt)
				fmt.Print(bundle.Transcript())
				if bundle.ScratchFile != "" {
					fmt.Printf("Saved to %s\n", bundle.ScratchFile)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&super, "super", false, "run the two-round superconsensus")
	cmd.Flags().StringVar(&backend, "backend", "", "ask a single backend (gemini, openai, grok, claude)")
	return cmd
}
