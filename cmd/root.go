/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ayoubnajjout/ai-linux-cmd-assistant/internal/lxassist/config"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "lxassist",
	Short: "A terminal client for the Linux command assistant",
	Long: `lxassist is a command-line client for the Linux command assistant backend.
Ask questions about Linux commands, browse your past conversations and
retry answers that failed to arrive.
You can configure the tool using a TOML configuration file.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/lxassist/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// userConfigDir returns $HOME/.config/lxassist.
func userConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "lxassist"), nil
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	// A .env in the working directory may carry LXASSIST_* variables.
	if err := godotenv.Load(); err != nil && verbose && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Error loading .env file: %v\n", err)
	}

	viper.SetEnvPrefix("LXASSIST")
	viper.AutomaticEnv()

	configDir, err := userConfigDir()
	cobra.CheckErr(err)

	// Later directories in the array take precedence over earlier ones
	defaultPromptDirs := []string{
		"/usr/share/lxassist/prompts",
		"/usr/local/share/lxassist/prompts",
		filepath.Join(configDir, "prompts"),
	}
	defaultConfig := config.NewDefaultConfig(configDir)

	viper.SetDefault("base_url", defaultConfig.BaseURL)
	viper.SetDefault("probe_timeout", defaultConfig.ProbeTimeout)
	viper.SetDefault("probe_retry_timeout", defaultConfig.ProbeRetryTimeout)
	viper.SetDefault("probe_max_retries", defaultConfig.ProbeMaxRetries)
	viper.SetDefault("ask_timeout", defaultConfig.AskTimeout)
	viper.SetDefault("history_timeout", defaultConfig.HistoryTimeout)
	viper.SetDefault("store", defaultConfig.Store)
	viper.SetDefault("store_path", defaultConfig.StorePath)
	viper.SetDefault("redis_url", defaultConfig.RedisURL)
	viper.SetDefault("prompt_dirs", defaultPromptDirs)
	viper.SetDefault("log_level", defaultConfig.LogLevel)
	viper.SetDefault("log_format", defaultConfig.LogFormat)
	viper.SetDefault("metrics_addr", defaultConfig.MetricsAddr)

	viper.BindEnv("base_url", "LXASSIST_BASE_URL")
	viper.BindEnv("store", "LXASSIST_STORE")
	viper.BindEnv("store_path", "LXASSIST_STORE_PATH")
	viper.BindEnv("log_level", "LXASSIST_LOG_LEVEL")
	viper.BindEnv("metrics_addr", "LXASSIST_METRICS_ADDR")

	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
		}
	} else {
		readConfigFiles(viper.GetViper(), []string{
			"/etc/lxassist",
			"/usr/local/etc/lxassist",
		}, configDir)
	}

	if verbose {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		fmt.Fprintln(os.Stderr, "Environment variables:")
		fmt.Fprintln(os.Stderr, "  LXASSIST_BASE_URL:", viper.GetString("base_url"))
		fmt.Fprintln(os.Stderr, "  LXASSIST_STORE:", viper.GetString("store"))
		fmt.Fprintln(os.Stderr, "  LXASSIST_STORE_PATH:", viper.GetString("store_path"))
		fmt.Fprintln(os.Stderr, "  LXASSIST_PROMPT_DIRS:", viper.GetStringSlice("prompt_dirs"))
	}
}

// readConfigFiles reads config.toml from the first system directory that
// has one, then merges the user's config.toml from userDir over it.
func readConfigFiles(v *viper.Viper, systemDirs []string, userDir string) {
	v.SetConfigType("toml")
	v.SetConfigName("config")
	for _, dir := range systemDirs {
		v.AddConfigPath(dir)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Error reading system config file: %v\n", err)
		}
	} else if verbose {
		fmt.Fprintln(os.Stderr, "Loaded system-wide config:", v.ConfigFileUsed())
	}

	// The search paths would find the system file again, so the user file
	// is named explicitly.
	userFile := filepath.Join(userDir, "config.toml")
	if _, err := os.Stat(userFile); err != nil {
		return
	}
	v.SetConfigFile(userFile)
	if err := v.MergeInConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "Error merging user config file: %v\n", err)
		return
	}
	if verbose {
		fmt.Fprintln(os.Stderr, "Merged user config:", userFile)
	}
}
