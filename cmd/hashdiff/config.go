package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/jamesainslie/hashdiff/pkg/hashdiff/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage hashdiff configuration settings.

Configuration is loaded from $XDG_CONFIG_HOME/hashdiff/config.yaml
(usually ~/.config/hashdiff/config.yaml).

Environment variables can override config file settings using the HASHDIFF_ prefix:
  HASHDIFF_WORKERS=8
  HASHDIFF_OUTPUT_FORMAT=plain
  HASHDIFF_CACHE_ENABLED=true`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective configuration merged from flags, environment, file and defaults.`,
	RunE:  runConfigShow,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit configuration file",
	Long: `Open the configuration file in your default editor.

The editor is determined by:
  1. $VISUAL environment variable
  2. $EDITOR environment variable
  3. Falls back to 'vi'

If the config file doesn't exist, a default one will be created first.`,
	RunE: runConfigEdit,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration file",
	Long:  `Create a default configuration file if one doesn't exist.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Long:  `Display the path to the configuration file.`,
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

// runConfigShow displays the current configuration.
func runConfigShow(cmd *cobra.Command, args []string) error {
	configFile := viper.ConfigFileUsed()
	if _, err := os.Stat(configFile); configFile != "" && err == nil {
		fmt.Printf("Config file: %s\n\n", configFile)
	} else {
		fmt.Printf("Config file: (using defaults, no file found)\n\n")
	}

	settings := viper.AllSettings()
	// Flag-only keys are not part of the file format.
	delete(settings, "quiet")
	delete(settings, "verbose")

	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	fmt.Println("Current Configuration:")
	fmt.Println("----------------------")
	fmt.Print(string(data))

	fmt.Println("\nEnvironment Overrides:")
	fmt.Println("----------------------")
	var overrides []string
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, config.EnvPrefix+"_") {
			overrides = append(overrides, kv)
		}
	}
	sort.Strings(overrides)
	if len(overrides) == 0 {
		fmt.Println("(none)")
	}
	for _, kv := range overrides {
		fmt.Println(kv)
	}

	return nil
}

// runConfigEdit opens the config file in an editor.
func runConfigEdit(cmd *cobra.Command, args []string) error {
	configPath, err := config.WriteDefault()
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	editor := os.Getenv("VISUAL")
	if editor == "" {
		editor = os.Getenv("EDITOR")
	}
	if editor == "" {
		editor = "vi"
	}

	printVerbose("Opening %s with %s", configPath, editor)

	editorCmd := exec.Command(editor, configPath)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr

	if err := editorCmd.Run(); err != nil {
		return fmt.Errorf("editor command failed: %w", err)
	}

	return nil
}

// runConfigInit creates a default config file.
func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := config.ConfigFile()

	if _, err := os.Stat(configPath); err == nil {
		printInfo("Config file already exists: %s", configPath)
		printInfo("Use 'hashdiff config edit' to modify it.")
		return nil
	}

	if _, err := config.WriteDefault(); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	printInfo("Created default config file: %s", configPath)
	return nil
}

// runConfigPath shows the config file path.
func runConfigPath(cmd *cobra.Command, args []string) error {
	configPath := config.ConfigFile()
	fmt.Println(configPath)

	if _, err := os.Stat(configPath); err == nil {
		printVerbose("File exists")
	} else if errors.Is(err, fs.ErrNotExist) {
		printVerbose("File does not exist (will use defaults)")
	}

	return nil
}
