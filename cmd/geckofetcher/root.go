package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile   string
	periodically bool
)

// rootCmd fetches the markets listing once, or forever with -p
var rootCmd = &cobra.Command{
	Use:   "geckofetcher",
	Short: "Fetch the CoinGecko markets listing into a JSON file",
	Long: `geckofetcher downloads the CoinGecko /coins/markets listing page by page
and writes the combined result to a single JSON file.

Settings are read from ~/.config/gecko_fetcher/config.json, which is created
with defaults on first run. Set LOGLEVEL (DEBUG, INFO, WARNING, ERROR) to
change log verbosity.`,
	Example: `  # Fetch once and exit
  geckofetcher

  # Keep the file fresh, refetching five minutes after each run
  geckofetcher -p`,
	Args:         cobra.NoArgs,
	Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage: true,
	RunE:         runFetcher,
}

// Execute runs the root command and exits 1 on failure
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is $HOME/.config/gecko_fetcher/config.json)")
	rootCmd.Flags().BoolVarP(&periodically, "periodically", "p", false, "run forever, sleeping between cycles")

	rootCmd.SetVersionTemplate(`geckofetcher {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.SilenceErrors = true
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
