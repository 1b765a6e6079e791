package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/josephgoksu/ideaflow/internal/config"
	"github.com/josephgoksu/ideaflow/internal/ui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change settings",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration (API keys masked)",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Write a setting to the config file",
	Long: `Write a setting to the config file given with --config, or to
~/.ideaflow/config.yaml. Comments and other keys in the file are kept.

Examples:
  ideaflow config set llm.provider anthropic
  ideaflow config set projects.dir ~/Projects/ideas`,
	Args:      cobra.ExactArgs(2),
	ValidArgs: settableKeys(),
	// Runs without loading the config so a broken file can be fixed.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE:              runConfigSet,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file in use",
	Args:  cobra.NoArgs,
	RunE:  runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd, configSetCmd, configPathCmd)
}

func settableKeys() []string {
	keys := make([]string, 0, len(config.SettableKeys))
	for k := range config.SettableKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	if isJSON() {
		return printJSON(appConfig.Redacted())
	}
	out, err := appConfig.YAML()
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}

func configFilePath() (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	return config.GlobalConfigFile()
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	path, err := configFilePath()
	if err != nil {
		return err
	}
	if err := config.SetValue(path, args[0], args[1]); err != nil {
		if strings.HasPrefix(err.Error(), "unknown config key") {
			return fmt.Errorf("%w\nKnown keys: %s", err, strings.Join(settableKeys(), ", "))
		}
		return err
	}
	if isJSON() {
		return printJSON(map[string]string{"file": path, "key": args[0]})
	}
	fmt.Printf("%s Set %s in %s\n", ui.Icon("✓", ui.StyleSuccess), args[0], path)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	path := viper.ConfigFileUsed()
	if path == "" {
		var err error
		if path, err = configFilePath(); err != nil {
			return err
		}
		path += " (not created yet)"
	}
	fmt.Println(path)
	return nil
}
