package main

import (
	"errors"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/simp-lee/epubclean/internal/prefs"
)

// errPartial reports that a run finished but some documents failed.
var errPartial = errors.New("some documents could not be processed")

type globalFlags struct {
	verbose   bool
	jsonLog   bool
	prefsPath string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "epubclean",
		Short:         "Merge style runs and number chapter headings in ePub books",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "log every document")
	pf.BoolVar(&g.jsonLog, "json-log", false, "log as JSON even on a terminal")
	pf.StringVar(&g.prefsPath, "prefs", "", "preferences file (default: user config dir)")

	root.AddCommand(
		newCleanCmd(g),
		newListCmd(g),
		newFormatCmd(g),
		newPrefsCmd(g),
	)
	return root
}

// logger builds the run logger. Output is human-readable on a terminal and
// JSON otherwise; every event carries the run id.
func (g *globalFlags) logger(w io.Writer) zerolog.Logger {
	if !g.jsonLog {
		if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			w = zerolog.ConsoleWriter{Out: f, TimeFormat: time.Kitchen}
		}
	}
	level := zerolog.InfoLevel
	if g.verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(w).Level(level).With().
		Timestamp().
		Str("run", uuid.NewString()).
		Logger()
}

func (g *globalFlags) store() (*prefs.Store, error) {
	return prefs.NewStore(g.prefsPath)
}
