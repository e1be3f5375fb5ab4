package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/li-boxuan/community/internal/config"
	"github.com/li-boxuan/community/pkg/logging"
	"github.com/li-boxuan/community/pkg/store"
)

var (
	cfgFile  string
	logLevel string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "community",
	Short: "Build and serve the community site",
	Long: `community builds the community static site: it migrates the local
database, seeds it from the meta-review dataset, runs the meta-review
scoring system, exports the updated dataset and distills the final site.
Every pipeline step is also available as its own subcommand.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./community.yaml or $HOME/.community/config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Working directory config wins; fall back to the home directory
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, ".community"))
		}
		viper.SetConfigName("community")
		viper.SetConfigType("yaml")
	}

	config.SetDefaults(viper.GetViper())

	viper.AutomaticEnv()
	viper.BindEnv("gci.token", "GCI_TOKEN")
	viper.BindEnv("store.dsn", "COMMUNITY_STORE_DSN")

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine, everything has a default
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && cfgFile != "" {
			fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
			os.Exit(1)
		}
	}
}

// loadConfig builds the effective configuration
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, nil
}

// newLogger creates the logger the subcommands share
func newLogger(cfg *config.Config) *logging.Logger {
	return logging.NewLogger(logging.ParseLevel(cfg.Log.Level), cfg.Log.JSON)
}

// openStore opens the configured store. The caller owns closing it.
func openStore(cfg *config.Config) (store.Store, error) {
	st, err := store.NewStore(store.Config{
		Type: cfg.Store.Type,
		DSN:  cfg.Store.DSN,
		Path: cfg.Store.Path,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return st, nil
}
