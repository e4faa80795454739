package cmd

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const configFields = "configfile, base_url, endpoint, probe_timeout, probe_retry_timeout, probe_max_retries, ask_timeout, history_timeout, store, store_path, redis_url, promptdirs, log_level, log_format, metrics_addr, theme"

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config [field]",
	Short: "Display current configuration",
	Long: `Display the current configuration values.
This command shows all configuration values loaded from the config file and environment variables,
plus the saved endpoint and theme.

If a field name is specified, only that field's value is displayed.
Available fields: ` + configFields + `

Examples:
  lxassist config               # Show all configuration
  lxassist config base_url      # Show only the configured base URL
  lxassist config endpoint      # Show the effective (possibly saved) base URL
  lxassist config promptdirs    # Show only prompt directories
  lxassist config theme dark    # Switch the chat colors to the dark theme`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		cfg := a.cfg

		if len(args) > 0 {
			field := strings.ToLower(args[0])
			switch field {
			case "configfile":
				fmt.Println(viper.ConfigFileUsed())
			case "base_url", "baseurl":
				fmt.Println(cfg.BaseURL)
			case "endpoint":
				fmt.Println(a.prefs.BaseURL())
			case "probe_timeout":
				fmt.Println(cfg.ProbeTimeout)
			case "probe_retry_timeout":
				fmt.Println(cfg.ProbeRetryTimeout)
			case "probe_max_retries":
				fmt.Println(cfg.ProbeMaxRetries)
			case "ask_timeout":
				fmt.Println(cfg.AskTimeout)
			case "history_timeout":
				fmt.Println(cfg.HistoryTimeout)
			case "store":
				fmt.Println(cfg.Store)
			case "store_path":
				fmt.Println(cfg.StorePath)
			case "redis_url":
				fmt.Println(maskURL(cfg.RedisURL))
			case "promptdirs", "prompt_dirs":
				fmt.Println(strings.Join(cfg.PromptDirs, ","))
			case "log_level":
				fmt.Println(cfg.LogLevel)
			case "log_format":
				fmt.Println(cfg.LogFormat)
			case "metrics_addr":
				fmt.Println(cfg.MetricsAddr)
			case "theme":
				fmt.Println(themeName(a.prefs.DarkMode()))
			default:
				fmt.Fprintf(os.Stderr, "Available fields: %s\n", configFields)
				return fmt.Errorf("unknown field: %s", args[0])
			}
			return nil
		}

		fmt.Printf("ConfigFile: %s\n", viper.ConfigFileUsed())
		fmt.Printf("BaseURL: %s\n", cfg.BaseURL)
		fmt.Printf("Endpoint: %s\n", a.prefs.BaseURL())
		fmt.Printf("ProbeTimeout: %s\n", cfg.ProbeTimeout)
		fmt.Printf("ProbeRetryTimeout: %s\n", cfg.ProbeRetryTimeout)
		fmt.Printf("ProbeMaxRetries: %d\n", cfg.ProbeMaxRetries)
		fmt.Printf("AskTimeout: %s\n", cfg.AskTimeout)
		fmt.Printf("HistoryTimeout: %s\n", cfg.HistoryTimeout)
		fmt.Printf("Store: %s\n", cfg.Store)
		fmt.Printf("StorePath: %s\n", cfg.StorePath)
		fmt.Printf("RedisURL: %s\n", maskURL(cfg.RedisURL))
		fmt.Printf("PromptDirectories: %s\n", strings.Join(cfg.PromptDirs, ","))
		fmt.Printf("LogLevel: %s\n", cfg.LogLevel)
		fmt.Printf("LogFormat: %s\n", cfg.LogFormat)
		fmt.Printf("MetricsAddr: %s\n", cfg.MetricsAddr)
		fmt.Printf("Theme: %s\n", themeName(a.prefs.DarkMode()))
		return nil
	},
}

// configThemeCmd represents the config theme command
var configThemeCmd = &cobra.Command{
	Use:       "theme dark|light",
	Short:     "Set the chat color theme",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"dark", "light"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := loadApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		dark := strings.EqualFold(args[0], "dark")
		if err := a.prefs.SetDarkMode(ctx, dark); err != nil {
			return err
		}
		fmt.Printf("Theme set to %s\n", themeName(dark))
		return nil
	},
}

func themeName(dark bool) string {
	if dark {
		return "dark"
	}
	return "light"
}

// maskURL hides the password of a URL with user info.
func maskURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	pass, ok := u.User.Password()
	if !ok {
		return raw
	}
	masked := strings.Replace(raw, ":"+pass+"@", ":"+maskToken(pass)+"@", 1)
	if masked == raw {
		return u.Redacted()
	}
	return masked
}

// maskToken returns a masked version of the token for security
func maskToken(token string) string {
	if len(token) <= 8 {
		return "********"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configThemeCmd)
}
