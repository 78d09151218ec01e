package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/simp-lee/epubclean"
	"github.com/simp-lee/epubclean/internal/prefs"
)

type cleanFlags struct {
	configPath   string
	noMerge      bool
	noHeadings   bool
	mergeScope   string
	headingScope string
	current      string
	start        int
	prefix       string
	style        string
	trailing     string
	insert       bool
	dryRun       bool
}

func newCleanCmd(g *globalFlags) *cobra.Command {
	f := &cleanFlags{}
	cmd := &cobra.Command{
		Use:   "clean <in.epub> [out.epub]",
		Short: "Merge style runs and write chapter headings",
		Long: `Clean rewrites the content documents of a book.

Adjacent inline elements with the same tag and style are merged, and the
first element of each document body receives a chapter heading such as
"Chapter 5". Without an output path the input file is replaced.

Settings are layered: defaults, saved preferences, the --config file, then
flags given on the command line.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClean(cmd, g, f, args)
		},
	}

	f.register(cmd.Flags())
	return cmd
}

func (f *cleanFlags) register(fl *pflag.FlagSet) {
	fl.StringVarP(&f.configPath, "config", "c", "", "job file (.toml, .yaml or .yml)")
	fl.BoolVar(&f.noMerge, "no-merge", false, "skip style-run merging")
	fl.BoolVar(&f.noHeadings, "no-headings", false, "skip chapter headings")
	fl.StringVar(&f.mergeScope, "merge-scope", "all", "documents to merge: all, current or onward")
	fl.StringVar(&f.headingScope, "heading-scope", "all", "documents to head: all, current or onward")
	fl.StringVar(&f.current, "current", "", "current document, by path or zero-based index")
	fl.IntVar(&f.start, "start", 0, "first chapter number (0 detects it)")
	fl.StringVar(&f.prefix, "prefix", "", "heading prefix (default from preferences, else \"Chapter\")")
	fl.StringVar(&f.style, "style", "", "number style: numeric, words or roman")
	fl.StringVar(&f.trailing, "trailing", "", "text after the number")
	fl.BoolVar(&f.insert, "insert", false, "insert a heading when the first element is not blank")
	fl.BoolVarP(&f.dryRun, "dry-run", "n", false, "report changes without writing")
}

// buildJob layers defaults, preferences, the config file and explicitly
// set flags, in that order.
func buildJob(fl *pflag.FlagSet, f *cleanFlags, p prefs.Prefs) (jobConfig, error) {
	job := defaultJob()
	p.Apply(&job.Numbering)

	if f.configPath != "" {
		if err := loadConfig(f.configPath, &job); err != nil {
			return job, err
		}
	}

	var err error
	if fl.Changed("no-merge") {
		job.Merge.Enabled = !f.noMerge
	}
	if fl.Changed("no-headings") {
		job.Headings.Enabled = !f.noHeadings
	}
	if fl.Changed("merge-scope") {
		if job.Merge.Scope, err = epubclean.ParseScope(f.mergeScope); err != nil {
			return job, err
		}
	}
	if fl.Changed("heading-scope") {
		if job.Headings.Scope, err = epubclean.ParseScope(f.headingScope); err != nil {
			return job, err
		}
	}
	if fl.Changed("style") {
		if job.Numbering.Style, err = epubclean.ParseStyle(f.style); err != nil {
			return job, err
		}
	}
	if fl.Changed("current") {
		job.Current = f.current
	}
	if fl.Changed("start") {
		if f.start < 0 {
			return job, fmt.Errorf("--start must not be negative: %w", epubclean.ErrConfiguration)
		}
		job.Numbering.Start = f.start
	}
	if fl.Changed("prefix") {
		job.Numbering.Prefix = f.prefix
	}
	if fl.Changed("trailing") {
		job.Numbering.Trailing = f.trailing
	}
	if fl.Changed("insert") {
		job.Numbering.InsertIfNotBlank = f.insert
	}
	return job, nil
}

func runClean(cmd *cobra.Command, g *globalFlags, f *cleanFlags, args []string) error {
	store, err := g.store()
	if err != nil {
		return err
	}
	p, err := store.Load()
	if err != nil {
		return err
	}
	job, err := buildJob(cmd.Flags(), f, p)
	if err != nil {
		return err
	}

	log := g.logger(cmd.ErrOrStderr())
	opts := job.options()
	opts.Logger = &log
	opts.DryRun = f.dryRun

	in, out := args[0], ""
	if len(args) == 2 {
		out = args[1]
	}
	res, err := epubclean.CleanFile(in, out, opts)
	if err != nil {
		return err
	}

	printSummary(cmd.OutOrStdout(), res, job.Numbering, f.dryRun)

	if !f.dryRun && job.Headings.Enabled {
		if err := store.Save(prefs.FromConfig(job.Numbering)); err != nil {
			log.Warn().Err(err).Str("file", store.Path()).Msg("could not save preferences")
		}
	}
	if len(res.Report) > 0 {
		return errPartial
	}
	return nil
}

func printSummary(w io.Writer, res *epubclean.BatchResult, cfg epubclean.NumberingConfig, dryRun bool) {
	merged := 0
	for _, d := range res.Documents {
		merged += d.Merged
		if d.Headed {
			heading, _ := cfg.Heading(d.Chapter)
			fmt.Fprintf(w, "%-40s %s\n", d.Name, heading)
		}
	}
	verb := "changed"
	if dryRun {
		verb = "would change"
	}
	fmt.Fprintf(w, "%s %d of %d documents: %d headings, %d elements merged\n",
		verb, len(res.Changed()), len(res.Documents), res.Headed(), merged)
	if res.Headed() > 0 {
		fmt.Fprintf(w, "next chapter number: %d\n", res.Counter)
	}
	for _, e := range res.Report {
		fmt.Fprintf(w, "error: %v\n", e)
	}
}

// exitCode maps an error returned by Execute to a process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errPartial):
		return 2
	}
	return 1
}
