package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/simp-lee/epubclean"
)

func newFormatCmd(g *globalFlags) *cobra.Command {
	var (
		prefix, style, trailing string
	)
	cmd := &cobra.Command{
		Use:   "format <number>",
		Short: "Print the heading for a chapter number",
		Example: `  epubclean format 5 --style words     # Chapter Five
  epubclean format 14 --style roman --prefix Part --trailing ":"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("chapter number %q: %w", args[0], epubclean.ErrConfiguration)
			}
			store, err := g.store()
			if err != nil {
				return err
			}
			p, err := store.Load()
			if err != nil {
				return err
			}
			cfg := epubclean.DefaultNumberingConfig()
			p.Apply(&cfg)

			fl := cmd.Flags()
			if fl.Changed("prefix") {
				cfg.Prefix = prefix
			}
			if fl.Changed("style") {
				if cfg.Style, err = epubclean.ParseStyle(style); err != nil {
					return err
				}
			}
			if fl.Changed("trailing") {
				cfg.Trailing = trailing
			}
			if err := cfg.Validate(false); err != nil {
				return err
			}

			heading, err := cfg.Heading(n)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), heading)
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&prefix, "prefix", "", "heading prefix")
	fl.StringVar(&style, "style", "", "number style: numeric, words or roman")
	fl.StringVar(&trailing, "trailing", "", "text after the number")
	return cmd
}
