package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/nvandessel/vcdq/internal/config"
	"github.com/spf13/cobra"
)

// configKeys lists the settable keys in display order.
var configKeys = []string{
	"engine.resolution",
	"engine.trailing_marker",
	"output.format",
	"trace.allowed_dirs",
	"server.rate_limit_per_minute",
	"server.rate_limit_burst",
	"server.audit",
	"logging.level",
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage vcdq configuration",
		Long: `View and modify vcdq configuration settings.

Configuration is stored in ~/.vcdq/config.yaml ($VCDQ_HOME/config.yaml when
set). Environment variables such as VCDQ_RESOLUTION override the file.

Examples:
  vcdq config list                              # Show all settings
  vcdq config get engine.resolution             # Get a specific setting
  vcdq config set engine.resolution tolerant    # Set a setting
  vcdq config set trace.allowed_dirs ~/sim,/tmp/runs`,
	}

	cmd.AddCommand(
		newConfigListCmd(),
		newConfigGetCmd(),
		newConfigSetCmd(),
	)

	return cmd
}

func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			out := cmd.OutOrStdout()
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(out).Encode(cfg)
			}

			path, _ := config.Path()
			fmt.Fprintf(out, "Configuration (%s):\n\n", path)
			for _, key := range configKeys {
				value, _ := getConfigValue(cfg, key)
				fmt.Fprintf(out, "  %-30s %s\n", key+":", formatConfigValue(value))
			}
			return nil
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			value, found := getConfigValue(cfg, key)
			if !found {
				return fmt.Errorf("unknown configuration key: %s", key)
			}

			out := cmd.OutOrStdout()
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(out).Encode(map[string]interface{}{
					"key":   key,
					"value": value,
				})
			}
			fmt.Fprintf(out, "%s = %s\n", key, formatConfigValue(value))
			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]

			path, err := config.Path()
			if err != nil {
				return err
			}
			// Start from the file, not Load, so env overrides are not persisted.
			cfg := config.Default()
			if fileCfg, err := config.LoadFromFile(path); err == nil {
				cfg = fileCfg
			}

			if err := setConfigValue(cfg, key, value); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := config.Save(cfg, path); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			out := cmd.OutOrStdout()
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(out).Encode(map[string]interface{}{
					"status": "updated",
					"key":    key,
					"value":  value,
				})
			}
			fmt.Fprintf(out, "Set %s = %s\n", key, value)
			return nil
		},
	}
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.VCDQConfig, key string) (interface{}, bool) {
	switch key {
	case "engine.resolution":
		return cfg.Engine.Resolution, true
	case "engine.trailing_marker":
		return cfg.Engine.TrailingMarker, true
	case "output.format":
		return cfg.Output.Format, true
	case "trace.allowed_dirs":
		dirs := cfg.Trace.AllowedDirs
		if dirs == nil {
			dirs = []string{}
		}
		return dirs, true
	case "server.rate_limit_per_minute":
		return cfg.Server.RateLimitPerMinute, true
	case "server.rate_limit_burst":
		return cfg.Server.RateLimitBurst, true
	case "server.audit":
		return cfg.Server.Audit, true
	case "logging.level":
		return cfg.Logging.Level, true
	default:
		return nil, false
	}
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.VCDQConfig, key, value string) error {
	switch key {
	case "engine.resolution":
		cfg.Engine.Resolution = value
	case "engine.trailing_marker":
		cfg.Engine.TrailingMarker = value
	case "output.format":
		cfg.Output.Format = value
	case "trace.allowed_dirs":
		var dirs []string
		for _, d := range strings.Split(value, ",") {
			if d = strings.TrimSpace(d); d != "" {
				dirs = append(dirs, d)
			}
		}
		cfg.Trace.AllowedDirs = dirs
	case "server.rate_limit_per_minute":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid number: %s", value)
		}
		cfg.Server.RateLimitPerMinute = f
	case "server.rate_limit_burst":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer: %s", value)
		}
		cfg.Server.RateLimitBurst = n
	case "server.audit":
		cfg.Server.Audit = value == "true" || value == "1"
	case "logging.level":
		cfg.Logging.Level = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}

func formatConfigValue(v interface{}) string {
	switch val := v.(type) {
	case []string:
		if len(val) == 0 {
			return "(any)"
		}
		return strings.Join(val, ",")
	case string:
		if val == "" {
			return "(default)"
		}
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}
