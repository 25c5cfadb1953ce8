package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dshills/funnel/internal/config"
)

var (
	flagForce      bool
	flagShowFormat string
)

// writeDefaultConfig creates the config file unless one exists and force is
// unset. It reports whether a file was written.
func writeDefaultConfig(force bool) (string, bool, error) {
	path, err := config.ConfigPath()
	if err != nil {
		return "", false, err
	}
	if _, err := os.Stat(path); err == nil && !force {
		return path, false, nil
	}
	if err := config.Save(config.Default()); err != nil {
		return path, false, fmt.Errorf("writing %s: %w", path, err)
	}
	return path, true, nil
}

// setConfigValue applies key=value to the stored file, leaving every other
// stored value untouched. The result must validate before it is saved.
func setConfigValue(key, value string) error {
	cfg := config.Default()
	if err := config.LoadFile(&cfg); err != nil {
		return err
	}
	if err := config.SetField(&cfg, key, value); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	return config.Save(cfg)
}

func printConfig(w io.Writer, cfg config.Config, format string) error {
	switch format {
	case "", "yaml":
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	default:
		return fmt.Errorf("%w: show format must be yaml or json, got %q", config.ErrInvalid, format)
	}
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and edit the funnel config file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default config file",
	Run: func(cmd *cobra.Command, args []string) {
		path, written, err := writeDefaultConfig(flagForce)
		switch {
		case err != nil:
			fail(err)
		case written:
			fmt.Fprintf(os.Stdout, "Wrote default config to %s\n", path)
		default:
			fmt.Fprintf(os.Stderr, "%s exists; pass --force to overwrite\n", path)
		}
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Store one config value",
	Long:  "Store one config value in the config file.\n\nKeys: " + strings.Join(config.Keys(), ", "),
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		if err := setConfigValue(args[0], args[1]); err != nil {
			fail(err)
			return
		}
		fmt.Fprintf(os.Stdout, "%s: %s\n", args[0], args[1])
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the merged config (file, .env, FUNNEL_* variables)",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(nil)
		if err != nil {
			fail(err)
			return
		}
		if err := printConfig(os.Stdout, cfg, flagShowFormat); err != nil {
			fail(err)
		}
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	Run: func(cmd *cobra.Command, args []string) {
		path, err := config.ConfigPath()
		if err != nil {
			fail(err)
			return
		}
		fmt.Fprintln(os.Stdout, path)
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&flagForce, "force", false, "Overwrite an existing config file")
	configShowCmd.Flags().StringVar(&flagShowFormat, "format", "yaml", "Output format (yaml, json)")
	configCmd.AddCommand(configInitCmd, configSetCmd, configShowCmd, configPathCmd)
}
