package main

import (
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jamesainslie/dedupe/pkg/dedupe/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage dedupe configuration settings.

Configuration is loaded from:
  1. $XDG_CONFIG_HOME/dedupe/config.yaml (if set)
  2. ~/.config/dedupe/config.yaml

Environment variables override config file settings using the DEDUPE_ prefix:
  DEDUPE_MIN_SIZE=1M
  DEDUPE_WORKERS_HASH=8
  DEDUPE_DELETE_MODE=trash`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit configuration file",
	Long: `Open the configuration file in $VISUAL, $EDITOR or vi.

A default file is written first if none exists.`,
	Args: cobra.NoArgs,
	RunE: runConfigEdit,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration file",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Args:  cobra.NoArgs,
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configShowCmd, configEditCmd, configInitCmd, configPathCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	v, err := config.Bind()
	if err != nil {
		return err
	}
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}
	if err := bindFlags(v, cmd); err != nil {
		return err
	}

	if used := v.ConfigFileUsed(); used != "" {
		fmt.Printf("# config file: %s\n", used)
	} else {
		fmt.Println("# config file: (none, using defaults)")
	}

	out, err := yaml.Marshal(v.AllSettings())
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	fmt.Print(string(out))

	overrides := envOverrides(v.AllKeys())
	if len(overrides) > 0 {
		fmt.Println("\n# environment overrides:")
		for _, o := range overrides {
			fmt.Printf("#   %s\n", o)
		}
	}
	return nil
}

// envOverrides lists the DEDUPE_ variables that are set for the given keys.
func envOverrides(keys []string) []string {
	var out []string
	for _, key := range keys {
		name := "DEDUPE_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if val, ok := os.LookupEnv(name); ok {
			out = append(out, name+"="+val)
		}
	}
	sort.Strings(out)
	return out
}

func runConfigEdit(_ *cobra.Command, _ []string) error {
	path, err := config.WriteDefault()
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

	printVerbose("opening %s with %s", path, editor)

	editorCmd := exec.Command(editor, path) //nolint:gosec // editor comes from the user's environment
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr
	if err := editorCmd.Run(); err != nil {
		return fmt.Errorf("editor command failed: %w", err)
	}
	return nil
}

func runConfigInit(_ *cobra.Command, _ []string) error {
	path, err := config.ConfigPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		printInfo("Config file already exists: %s", path)
		printInfo("Use 'dedupe config edit' to modify it.")
		return nil
	}

	if _, err := config.WriteDefault(); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	printInfo("Created default config file: %s", path)
	return nil
}

func runConfigPath(_ *cobra.Command, _ []string) error {
	path, err := config.ConfigPath()
	if err != nil {
		return err
	}
	fmt.Println(path)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		printVerbose("file does not exist (defaults are used)")
	}
	return nil
}
