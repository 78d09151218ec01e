package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simp-lee/epubclean"
	"github.com/simp-lee/epubclean/internal/prefs"
)

func TestCleanCmd_WritesOutput(t *testing.T) {
	in := writeTestBook(t,
		testDoc{"Text/chapter05.xhtml", `<p class="h"></p><p><span style="b">a</span><span style="b">b</span></p>`},
		testDoc{"Text/chapter06.xhtml", `<p class="h"></p><p>text</p>`},
	)
	out := filepath.Join(t.TempDir(), "out.epub")

	stdout, _, err := execute(t, "clean", in, out)

	require.NoError(t, err)
	assert.Contains(t, stdout, "changed 2 of 2 documents: 2 headings, 1 elements merged")
	assert.Contains(t, stdout, "next chapter number: 7")

	first := readEntry(t, out, "OEBPS/Text/chapter05.xhtml")
	assert.Contains(t, first, `<p class="h">Chapter 5</p>`)
	assert.Contains(t, first, `<span style="b">ab</span>`)
	assert.Contains(t, readEntry(t, out, "OEBPS/Text/chapter06.xhtml"), `<p class="h">Chapter 6</p>`)
}

func TestCleanCmd_FlagsOverrideDefaults(t *testing.T) {
	in := writeTestBook(t,
		testDoc{"a.xhtml", `<h1></h1>`},
		testDoc{"b.xhtml", `<h1></h1>`},
		testDoc{"c.xhtml", `<h1></h1>`},
	)
	out := filepath.Join(t.TempDir(), "out.epub")

	_, _, err := execute(t, "clean", in, out,
		"--style", "roman", "--prefix", "Part", "--start", "4",
		"--heading-scope", "onward", "--current", "1")

	require.NoError(t, err)
	assert.Contains(t, readEntry(t, out, "OEBPS/a.xhtml"), `<h1></h1>`)
	assert.Contains(t, readEntry(t, out, "OEBPS/b.xhtml"), `<h1>Part IV</h1>`)
	assert.Contains(t, readEntry(t, out, "OEBPS/c.xhtml"), `<h1>Part V</h1>`)
}

func TestCleanCmd_DryRunWritesNothing(t *testing.T) {
	in := writeTestBook(t, testDoc{"a.xhtml", `<p></p>`})
	before, err := os.ReadFile(in)
	require.NoError(t, err)
	out := filepath.Join(t.TempDir(), "out.epub")

	stdout, _, err := execute(t, "clean", "--dry-run", in, out)

	require.NoError(t, err)
	assert.Contains(t, stdout, "would change 1 of 1 documents")
	assert.NoFileExists(t, out)
	after, err := os.ReadFile(in)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestCleanCmd_PartialFailure(t *testing.T) {
	in := writeTestBook(t,
		testDoc{"a.xhtml", `<p></p>`},
		testDoc{"b.xhtml", `<p><b>unclosed</p>`},
		testDoc{"c.xhtml", `<p></p>`},
	)

	stdout, _, err := execute(t, "clean", "--start", "1", in)

	require.Error(t, err)
	assert.True(t, errors.Is(err, errPartial))
	assert.Equal(t, 2, exitCode(err))
	assert.Contains(t, stdout, "error:")
	assert.Contains(t, stdout, "b.xhtml")
	// The input was replaced in place; the good documents were headed.
	assert.Contains(t, readEntry(t, in, "OEBPS/a.xhtml"), "<p>Chapter 1</p>")
	assert.Contains(t, readEntry(t, in, "OEBPS/c.xhtml"), "<p>Chapter 2</p>")
}

func TestCleanCmd_ConfigurationError(t *testing.T) {
	in := writeTestBook(t, testDoc{"a.xhtml", `<p></p>`})

	_, _, err := execute(t, "clean", "--heading-scope", "current", "--current", "missing.xhtml", in)

	require.Error(t, err)
	assert.ErrorIs(t, err, epubclean.ErrConfiguration)
	assert.Equal(t, 1, exitCode(err))
}

func TestCleanCmd_SavesPreferences(t *testing.T) {
	in := writeTestBook(t, testDoc{"a.xhtml", `<p></p>`})
	prefsPath := filepath.Join(t.TempDir(), "prefs.toml")

	_, _, err := executeWithPrefs(t, prefsPath, "clean", "--style", "words", "--trailing", ":", in)
	require.NoError(t, err)

	store, err := prefs.NewStore(prefsPath)
	require.NoError(t, err)
	p, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, prefs.Prefs{Prefix: "Chapter", Style: epubclean.StyleWords, Trailing: ":"}, p)

	// The next run picks the saved style up.
	in2 := writeTestBook(t, testDoc{"a.xhtml", `<p></p>`})
	_, _, err = executeWithPrefs(t, prefsPath, "clean", "--start", "3", in2)
	require.NoError(t, err)
	assert.Contains(t, readEntry(t, in2, "OEBPS/a.xhtml"), "<p>Chapter Three :</p>")
}

func TestCleanCmd_JSONLog(t *testing.T) {
	in := writeTestBook(t, testDoc{"a.xhtml", `<p></p>`})

	_, stderr, err := execute(t, "clean", "--json-log", "--verbose", "--dry-run", in)

	require.NoError(t, err)
	assert.Contains(t, stderr, `"message":"processed document"`)
	assert.Contains(t, stderr, `"run":"`)
}

func parseCleanFlags(t *testing.T, args ...string) (*pflag.FlagSet, *cleanFlags) {
	t.Helper()
	f := &cleanFlags{}
	fs := pflag.NewFlagSet("clean", pflag.ContinueOnError)
	f.register(fs)
	require.NoError(t, fs.Parse(args))
	return fs, f
}

func TestBuildJob(t *testing.T) {
	dir := t.TempDir()
	tomlPath := filepath.Join(dir, "job.toml")
	require.NoError(t, os.WriteFile(tomlPath, []byte(`
current = "ch2.xhtml"

[merge]
enabled = false

[headings]
enabled = true
scope = "onward"

[numbering]
prefix = "Book"
style = "roman"
start = 2
`), 0644))

	tests := []struct {
		name  string
		args  []string
		prefs prefs.Prefs
		check func(t *testing.T, job jobConfig)
	}{
		{
			name:  "defaults",
			prefs: prefs.Defaults(),
			check: func(t *testing.T, job jobConfig) {
				assert.Equal(t, defaultJob(), job)
				assert.True(t, job.options().DetectStart)
			},
		},
		{
			name:  "preferences",
			prefs: prefs.Prefs{Prefix: "Part", Style: epubclean.StyleWords, Trailing: "."},
			check: func(t *testing.T, job jobConfig) {
				assert.Equal(t, "Part", job.Numbering.Prefix)
				assert.Equal(t, epubclean.StyleWords, job.Numbering.Style)
				assert.Equal(t, ".", job.Numbering.Trailing)
			},
		},
		{
			name:  "config file",
			args:  []string{"--config", tomlPath},
			prefs: prefs.Defaults(),
			check: func(t *testing.T, job jobConfig) {
				assert.False(t, job.Merge.Enabled)
				assert.Equal(t, epubclean.ScopeCurrentOnward, job.Headings.Scope)
				assert.Equal(t, "Book", job.Numbering.Prefix)
				assert.Equal(t, epubclean.StyleRoman, job.Numbering.Style)
				assert.Equal(t, 2, job.Numbering.Start)
				assert.Equal(t, "ch2.xhtml", job.Current)
				assert.False(t, job.options().DetectStart)
			},
		},
		{
			name:  "flags override config file",
			args:  []string{"--config", tomlPath, "--no-merge=false", "--style", "numeric", "--start", "0", "--current", "3"},
			prefs: prefs.Defaults(),
			check: func(t *testing.T, job jobConfig) {
				assert.True(t, job.Merge.Enabled)
				assert.Equal(t, epubclean.StyleNumeric, job.Numbering.Style)
				assert.Equal(t, "Book", job.Numbering.Prefix)
				assert.Equal(t, "3", job.Current)
				assert.True(t, job.options().DetectStart)
			},
		},
		{
			name:  "headings off",
			args:  []string{"--no-headings", "--merge-scope", "Current File Only", "--insert"},
			prefs: prefs.Defaults(),
			check: func(t *testing.T, job jobConfig) {
				assert.False(t, job.Headings.Enabled)
				assert.Equal(t, epubclean.ScopeCurrentOnly, job.Merge.Scope)
				assert.True(t, job.Numbering.InsertIfNotBlank)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs, f := parseCleanFlags(t, tt.args...)
			job, err := buildJob(fs, f, tt.prefs)
			require.NoError(t, err)
			tt.check(t, job)
		})
	}
}

func TestBuildJob_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"bad scope", []string{"--merge-scope", "sideways"}},
		{"bad style", []string{"--style", "hex"}},
		{"negative start", []string{"--start", "-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs, f := parseCleanFlags(t, tt.args...)
			_, err := buildJob(fs, f, prefs.Defaults())
			assert.ErrorIs(t, err, epubclean.ErrConfiguration)
		})
	}
}
