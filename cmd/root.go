package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile     string
	mispURL     string
	apiKey      string
	verifyTLS   bool
	timeout     time.Duration
	journalPath string
	redisURL    string
	logLevel    string
	logFormat   string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mispctl",
	Short: "Create and tag MISP events from the command line",
	Long: `mispctl is a small client for the MISP REST API. It finds events, creates
them idempotently (an event is only created when no event with the same name
exists for the organization), tags them and adds attributes.

Features:
- Single-attempt REST calls with duplicate-attribute detection
- Event manifests (YAML/JSON) applied once or watched in a directory
- SQLite journal of every API call
- Optional Redis Streams notices for created events`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.mispctl.yaml)")
	rootCmd.PersistentFlags().StringVar(&mispURL, "misp-url", "", "MISP base URL (env MISP_URL)")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "MISP API key (env MISP_API_KEY)")
	rootCmd.PersistentFlags().BoolVar(&verifyTLS, "verify-tls", true, "Verify TLS certificates")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "HTTP timeout per MISP call (0 disables)")
	rootCmd.PersistentFlags().StringVar(&journalPath, "journal", "./data/mispctl.db", "SQLite call journal path (empty disables)")
	rootCmd.PersistentFlags().StringVar(&redisURL, "redis", "", "Redis URL for event notices (empty disables)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "Log format (console, json)")

	// Bind flags to viper
	viper.BindPFlag("misp.url", rootCmd.PersistentFlags().Lookup("misp-url"))
	viper.BindPFlag("misp.key", rootCmd.PersistentFlags().Lookup("api-key"))
	viper.BindPFlag("misp.verify_tls", rootCmd.PersistentFlags().Lookup("verify-tls"))
	viper.BindPFlag("misp.timeout", rootCmd.PersistentFlags().Lookup("timeout"))
	viper.BindPFlag("journal.path", rootCmd.PersistentFlags().Lookup("journal"))
	viper.BindPFlag("redis.url", rootCmd.PersistentFlags().Lookup("redis"))
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".mispctl" (without extension).
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".mispctl")
	}

	// MISPCTL_MISP_URL, MISPCTL_LOG_LEVEL, ...
	viper.SetEnvPrefix("mispctl")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// The names other MISP tooling uses.
	viper.BindEnv("misp.url", "MISPCTL_MISP_URL", "MISP_URL")
	viper.BindEnv("misp.key", "MISPCTL_MISP_KEY", "MISP_API_KEY")

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	// Set defaults
	viper.SetDefault("misp.verify_tls", true)
	viper.SetDefault("misp.timeout", 30*time.Second)
	viper.SetDefault("journal.path", "./data/mispctl.db")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "console")
	viper.SetDefault("metrics.addr", "")
}

// GetConfig returns the current configuration values
func GetConfig() Config {
	return Config{
		MISP: MISPConfig{
			URL:       viper.GetString("misp.url"),
			Key:       viper.GetString("misp.key"),
			VerifyTLS: viper.GetBool("misp.verify_tls"),
			Timeout:   viper.GetDuration("misp.timeout"),
		},
		Journal: JournalConfig{
			Path: viper.GetString("journal.path"),
		},
		Redis: RedisConfig{
			URL: viper.GetString("redis.url"),
		},
		Log: LogConfig{
			Level:  viper.GetString("log.level"),
			Format: viper.GetString("log.format"),
		},
		Metrics: MetricsConfig{
			Addr: viper.GetString("metrics.addr"),
		},
	}
}

// Config represents the application configuration
type Config struct {
	MISP    MISPConfig    `mapstructure:"misp"`
	Journal JournalConfig `mapstructure:"journal"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type MISPConfig struct {
	URL       string        `mapstructure:"url"`
	Key       string        `mapstructure:"key"`
	VerifyTLS bool          `mapstructure:"verify_tls"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// Validate reports missing connection settings.
func (c MISPConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("MISP URL is required. Use --misp-url flag or set MISP_URL environment variable")
	}
	if c.Key == "" {
		return fmt.Errorf("MISP API key is required. Use --api-key flag or set MISP_API_KEY environment variable")
	}
	return nil
}

type JournalConfig struct {
	Path string `mapstructure:"path"`
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}
