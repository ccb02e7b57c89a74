package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gertlabs/gert/history"
)

func newConversationsCmd() *cobra.Command {
	convCmd := &cobra.Command{
		Use:     "conversations",
		Aliases: []string{"conv"},
		Short:   "Inspect and manage saved conversations",
	}

	withStore := func(fn func(cmd *cobra.Command, store history.Store, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.Close()
			store, err := a.Store(cmd.Context())
			if err != nil {
				return err
			}
			return fn(cmd, store, args)
		}
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List conversations, most recent first",
		RunE: withStore(func(cmd *cobra.Command, store history.Store, args []string) error {
			entries, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("No saved conversations")
				return nil
			}
			printEntries(entries)
			return nil
		}),
	}

	searchCmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search conversation summaries",
		Args:  cobra.MinimumNArgs(1),
		RunE: withStore(func(cmd *cobra.Command, store history.Store, args []string) error {
			res := store.Search(cmd.Context(), strings.Join(args, " "))
			switch res.Status {
			case history.SearchFailed:
				return res.Err
			case history.SearchNoMatches:
				fmt.Println(history.NoMatchesMessage)
				return nil
			}
			printEntries(res.Entries)
			return nil
		}),
	}

	deleteCmd := &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete one conversation",
		Args:  cobra.ExactArgs(1),
		RunE: withStore(func(cmd *cobra.Command, store history.Store, args []string) error {
			err := store.Delete(cmd.Context(), args[0])
			if errors.Is(err, history.ErrNotFound) {
				return fmt.Errorf("conversation %s not found", args[0])
			}
			if err != nil {
				return err
			}
			fmt.Printf("Deleted %s\n", args[0])
			return nil
		}),
	}

	var yes bool
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every conversation and the index",
		RunE: withStore(func(cmd *cobra.Command, store history.Store, args []string) error {
			if !yes {
				return errors.New("refusing to clear history without --yes")
			}
			if err := store.ClearAll(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("All conversation history cleared")
			return nil
		}),
	}
	clearCmd.Flags().BoolVar(&yes, "yes", false, "confirm clearing all history")

	convCmd.AddCommand(listCmd, searchCmd, deleteCmd, clearCmd)
	return convCmd
}

func printEntries(entries []history.IndexEntry) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMESSAGES\tUPDATED\tSUMMARY")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", e.ID, e.MessageCount, e.LastUpdated.Local().Format("2006-01-02 15:04"), e.Summary)
	}
	w.Flush()
}
