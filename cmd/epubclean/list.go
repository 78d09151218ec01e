package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/simp-lee/epubclean"
)

func newListCmd(g *globalFlags) *cobra.Command {
	var prefix string
	cmd := &cobra.Command{
		Use:   "list <in.epub>",
		Short: "List content documents with their heading markers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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
			if cmd.Flags().Changed("prefix") {
				cfg.Prefix = prefix
			}

			book, err := epubclean.Open(args[0])
			if err != nil {
				return err
			}
			defer book.Close()

			docs, err := book.Documents()
			if err != nil {
				return err
			}
			log := g.logger(cmd.ErrOrStderr())
			for _, w := range book.Warnings() {
				log.Warn().Str("file", args[0]).Msg(w)
			}

			if info := book.Info(); info.Title != "" {
				fmt.Fprintln(cmd.OutOrStdout(), bookLabel(info))
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "INDEX\tDOCUMENT\tMARKER\tTEXT")
			for i, d := range docs {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i, d.Name, markerLabel(d, cfg), epubclean.TextPreview(d.Markup, 40))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", "", "heading prefix used to recognise existing headings")
	return cmd
}

// bookLabel renders "Title by Author, Author".
func bookLabel(info epubclean.Info) string {
	if len(info.Authors) == 0 {
		return info.Title
	}
	return info.Title + " by " + strings.Join(info.Authors, ", ")
}

// markerLabel describes a document's heading marker, e.g. "heading 3".
func markerLabel(d epubclean.Document, cfg epubclean.NumberingConfig) string {
	root, err := epubclean.Parse(d.Markup)
	if err != nil {
		return "malformed"
	}
	m := epubclean.DetectMarker(root, cfg)
	if m.Kind == epubclean.MarkerExistingHeading {
		return fmt.Sprintf("%s %d", m.Kind, m.Number)
	}
	return m.Kind.String()
}
