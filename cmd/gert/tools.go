package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newToolsCmd() *cobra.Command {
	toolsCmd := &cobra.Command{
		Use:   "tools",
		Short: "Tool management commands",
	}
	toolsCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List available tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.Close()

			reg, err := a.Registry(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Println("Available tools:")
			for _, name := range reg.List() {
				tool, err := reg.Get(name)
				if err != nil {
					continue
				}
				fmt.Printf("  %-28s %-8s %s\n", name, tool.Timeout(), tool.Description())
			}
			return nil
		},
	})
	return toolsCmd
}
