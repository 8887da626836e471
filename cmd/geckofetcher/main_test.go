package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geckofetcher/internal/recorder"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	configFile = ""
	historyLimit = 10

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestConfigPathDefault(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	out, err := execute(t, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "gecko_fetcher", "config.json")+"\n", out)
}

func TestConfigPathOverride(t *testing.T) {
	out, err := execute(t, "config", "path", "--config", "/etc/gecko.json")
	require.NoError(t, err)
	assert.Equal(t, "/etc/gecko.json\n", out)
}

func TestConfigShowWritesDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	out, err := execute(t, "config", "show")
	require.NoError(t, err)

	assert.Contains(t, out, "data_dir: "+filepath.Join(home, "data"))
	assert.Contains(t, out, "data_file_name: coingecko_data.json")
	assert.Contains(t, out, "num_entries_per_page: 200")
	assert.Contains(t, out, "p_max: 6")
	assert.Contains(t, out, "percentage_price_change_periods: 1h,7d,14d,30d")
	assert.NotContains(t, out, "history_db")

	_, err = os.Stat(filepath.Join(home, ".config", "gecko_fetcher", "config.json"))
	assert.NoError(t, err, "config file should be created on first use")
}

func TestConfigShowMalformedFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"p_max": `), 0644))

	_, err := execute(t, "config", "show", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestHistoryRequiresDatabase(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	_, err := execute(t, "history")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "history_db is not set")
}

func TestHistoryListsCycles(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	dbPath := filepath.Join(home, "history.db")

	rec, err := recorder.NewSQLiteRecorder(dbPath)
	require.NoError(t, err)
	started := time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, rec.RecordCycle(context.Background(), &recorder.CycleRecord{
		CycleID:     "0b7d3c1e-8f7a-4a55-9d2e-6a1d1f0c2b11",
		StartedAt:   started,
		FinishedAt:  started.Add(2500 * time.Millisecond),
		Entries:     1000,
		FailedPages: []int{3, 6},
	}))
	require.NoError(t, rec.Close())

	cfgPath := filepath.Join(home, "config.json")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`{"history_db": "`+dbPath+`"}`), 0644))

	out, err := execute(t, "history", "--config", cfgPath, "-n", "5")
	require.NoError(t, err)

	assert.Contains(t, out, "CYCLE")
	assert.Contains(t, out, "0b7d3c1e-8f7a-4a55-9d2e-6a1d1f0c2b11")
	assert.Contains(t, out, "1000")
	assert.Contains(t, out, "3,6")
	assert.Contains(t, out, "2.5s")
}

func TestHistoryEmpty(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfgPath := filepath.Join(home, "config.json")
	dbPath := filepath.Join(home, "history.db")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`{"history_db": "`+dbPath+`"}`), 0644))

	out, err := execute(t, "history", "--config", cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "No cycles recorded\n", out)
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "geckofetcher "+version)
	assert.Contains(t, out, "commit:")
}

func TestRootRejectsArguments(t *testing.T) {
	_, err := execute(t, "bitcoin")
	assert.Error(t, err)
}

func TestFormatPages(t *testing.T) {
	assert.Equal(t, "-", formatPages(nil))
	assert.Equal(t, "2", formatPages([]int{2}))
	assert.Equal(t, "1,4,6", formatPages([]int{1, 4, 6}))
}
