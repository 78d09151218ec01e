package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPrefsCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show or reset the remembered heading settings",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the remembered heading settings",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				store, err := g.store()
				if err != nil {
					return err
				}
				p, err := store.Load()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "file:     %s\n", store.Path())
				fmt.Fprintf(out, "prefix:   %s\n", p.Prefix)
				fmt.Fprintf(out, "style:    %s\n", p.Style)
				fmt.Fprintf(out, "trailing: %q\n", p.Trailing)
				return nil
			},
		},
		&cobra.Command{
			Use:   "reset",
			Short: "Forget the remembered heading settings",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				store, err := g.store()
				if err != nil {
					return err
				}
				if err := store.Reset(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "preferences reset")
				return nil
			},
		},
	)
	return cmd
}
