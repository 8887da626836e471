package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"geckofetcher/pkg/config"
)

// configCmd groups the configuration helpers
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the configuration file",
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the effective configuration as YAML. Optional keys that are not set
in the file are omitted. The file is created with defaults if it is missing.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var pathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file location",
	Args:  cobra.NoArgs,
	RunE:  runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(pathCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "# %s\n", cfg.Path)
	fmt.Fprint(out, string(data))
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return err
		}
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}
