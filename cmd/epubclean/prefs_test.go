package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simp-lee/epubclean"
	"github.com/simp-lee/epubclean/internal/prefs"
)

func TestPrefsCmd_ShowAndReset(t *testing.T) {
	prefsPath := filepath.Join(t.TempDir(), "prefs.toml")
	store, err := prefs.NewStore(prefsPath)
	require.NoError(t, err)
	require.NoError(t, store.Save(prefs.Prefs{Prefix: "Part", Style: epubclean.StyleRoman, Trailing: "."}))

	out, _, err := executeWithPrefs(t, prefsPath, "prefs", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "prefix:   Part")
	assert.Contains(t, out, "style:    roman")
	assert.Contains(t, out, `trailing: "."`)

	out, _, err = executeWithPrefs(t, prefsPath, "prefs", "reset")
	require.NoError(t, err)
	assert.Contains(t, out, "preferences reset")
	_, err = os.Stat(prefsPath)
	assert.True(t, os.IsNotExist(err))

	out, _, err = executeWithPrefs(t, prefsPath, "prefs", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "prefix:   Chapter")
	assert.Contains(t, out, "style:    numeric")
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 2, exitCode(errPartial))
	assert.Equal(t, 1, exitCode(epubclean.ErrConfiguration))
}
