package cmd

import (
	"strings"

	"github.com/Iron-Ham/svcbind/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "svcbind",
	Short: "Local client service binding coordinator",
	Long: `svcbind publishes a locally bound client service for local connections
only while the host application is running, attaching the host's repository
and metastore before the service becomes visible.

It watches a directory of service descriptors, routes connections between
the local service and the remote backend, and can replay lifecycle scripts
or stress the coordinator with concurrent transitions.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/svcbind/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath("$HOME/.config/svcbind")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("SVCBIND")
	// Replace dots with underscores for nested keys in env vars
	// e.g., SVCBIND_ROUTER_FALLBACK for router.fallback
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
