package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Iron-Ham/svcbind/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify svcbind configuration",
	Long: `View or modify svcbind configuration.

Without arguments, displays the current configuration.
Use subcommands to modify settings or create a config file.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the user's config file.

Keys use dot notation, e.g.:
  svcbind config set router.fallback fail
  svcbind config set registry.dir /var/lib/svcbind/services
  svcbind config set metrics.enabled true

Valid keys:
  logging.enabled       - Enable logging (true/false)
  logging.level         - Minimum level: debug, info, warn, error
  logging.dir           - Directory for svcbind.log (empty: stderr for run)
  host.repository       - Repository name supplied by the host
  host.metastore        - Metastore name supplied by the host
  registry.dir          - Directory of *.yaml service descriptors
  registry.debounce_ms  - Debounce for descriptor changes in milliseconds
  router.local_hosts    - Comma-separated glob patterns of local hosts
  router.fallback       - Local host with no service: remote, fail
  metrics.enabled       - Serve /metrics during run (true/false)
  metrics.addr          - Metrics listen address`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at ~/.config/svcbind/config.yaml with all available options.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
}

// configKeys maps settable keys to their value kind.
var configKeys = map[string]string{
	"logging.enabled":      "bool",
	"logging.level":        "string",
	"logging.dir":          "string",
	"host.repository":      "string",
	"host.metastore":       "string",
	"registry.dir":         "string",
	"registry.debounce_ms": "int",
	"router.local_hosts":   "list",
	"router.fallback":      "string",
	"metrics.enabled":      "bool",
	"metrics.addr":         "string",
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "Current configuration:")
	fmt.Fprintln(out)

	// Show where config is being read from
	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Config file: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "Config file: (none - using defaults)\n")
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "logging:")
	fmt.Fprintf(out, "  enabled: %v\n", cfg.Logging.Enabled)
	fmt.Fprintf(out, "  level: %s\n", cfg.Logging.Level)
	fmt.Fprintf(out, "  dir: %s\n", cfg.Logging.Dir)

	fmt.Fprintln(out, "host:")
	fmt.Fprintf(out, "  repository: %s\n", cfg.Host.Repository)
	fmt.Fprintf(out, "  metastore: %s\n", cfg.Host.MetaStore)

	fmt.Fprintln(out, "registry:")
	fmt.Fprintf(out, "  dir: %s\n", cfg.Registry.Dir)
	fmt.Fprintf(out, "  debounce_ms: %d\n", cfg.Registry.DebounceMs)

	fmt.Fprintln(out, "router:")
	fmt.Fprintf(out, "  local_hosts: %s\n", strings.Join(cfg.Router.LocalHosts, ", "))
	fmt.Fprintf(out, "  fallback: %s\n", cfg.Router.Fallback)

	fmt.Fprintln(out, "metrics:")
	fmt.Fprintf(out, "  enabled: %v\n", cfg.Metrics.Enabled)
	fmt.Fprintf(out, "  addr: %s\n", cfg.Metrics.Addr)

	return nil
}

// parseConfigValue converts a raw value for key into its typed form.
func parseConfigValue(key, value string) (any, error) {
	keyType, ok := configKeys[key]
	if !ok {
		return nil, fmt.Errorf("unknown configuration key: %s\nRun 'svcbind config set --help' to see valid keys", key)
	}

	switch keyType {
	case "bool":
		if value != "true" && value != "false" {
			return nil, fmt.Errorf("invalid value for %s: expected true or false", key)
		}
		return value == "true", nil
	case "int":
		intVal, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: expected integer", key)
		}
		if intVal < 0 {
			return nil, fmt.Errorf("invalid value for %s: must be non-negative", key)
		}
		return intVal, nil
	case "list":
		var items []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		return items, nil
	}
	return value, nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	typedValue, err := parseConfigValue(key, args[1])
	if err != nil {
		return err
	}

	// Validate the resulting configuration before writing it
	probe := viper.New()
	for k := range configKeys {
		probe.Set(k, viper.Get(k))
	}
	probe.Set(key, typedValue)
	if _, err := config.LoadFrom(probe); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}

	// Ensure config directory exists
	configDir := config.ConfigDir()
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Set the value in viper
	viper.Set(key, typedValue)

	// Write to config file
	configFile := config.ConfigFile()
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Set %s = %v\n", key, typedValue)
	fmt.Fprintf(out, "Config saved to %s\n", configFile)

	return nil
}

const defaultConfigContent = `# svcbind configuration

# Logging
logging:
  enabled: true
  # Options: debug, info, warn, error
  level: info
  # Directory for svcbind.log. Empty logs to stderr during 'svcbind run'.
  dir: ""

# Names of the handles the host supplies at start
host:
  repository: default
  metastore: local

# Directory-backed service registry
registry:
  # Directory of *.yaml descriptors (id, name, endpoint). Empty disables it.
  dir: ""
  debounce_ms: 50

# Connection routing
router:
  # Glob patterns of hosts served by the local service
  local_hosts:
    - localhost
    - 127.0.0.1
    - "*.local"
  # Local host with nothing published. Options: remote, fail
  fallback: remote

# Prometheus endpoint served during 'svcbind run'
metrics:
  enabled: false
  addr: 127.0.0.1:9464
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	configDir := config.ConfigDir()
	configFile := config.ConfigFile()

	// Check if config file already exists
	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s\nUse 'svcbind config set' to modify values", configFile)
	}

	// Create config directory
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(configFile, []byte(defaultConfigContent), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created config file at %s\n", configFile)
	fmt.Fprintln(out, "Edit this file to customize svcbind's behavior.")

	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	configFile := config.ConfigFile()
	out := cmd.OutOrStdout()

	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Active config: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "Default path: %s (not created)\n", configFile)
	}

	// Also show config search paths
	fmt.Fprintln(out, "\nSearch paths:")
	fmt.Fprintf(out, "  1. %s\n", filepath.Join(config.ConfigDir(), "config.yaml"))
	fmt.Fprintf(out, "  2. $HOME/.config/svcbind/config.yaml\n")
	fmt.Fprintf(out, "  3. ./config.yaml (current directory)\n")
	fmt.Fprintln(out, "\nEnvironment variables: SVCBIND_* (e.g., SVCBIND_ROUTER_FALLBACK)")

	return nil
}
