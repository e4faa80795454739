/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var resetEndpoint bool

// endpointCmd represents the endpoint command
var endpointCmd = &cobra.Command{
	Use:   "endpoint [url]",
	Short: "Show or change the backend URL",
	Long: `Show or change the backend base URL.

Without arguments the effective URL is printed. With a URL it is validated
(http or https, host required), saved and checked once. --reset drops the
saved URL and goes back to base_url from the configuration.

Examples:
  lxassist endpoint                         # Show the current URL
  lxassist endpoint http://10.0.0.5:8000    # Use another backend
  lxassist endpoint --reset                 # Back to the configured default`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := loadApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if len(args) == 0 && !resetEndpoint {
			source := "default"
			if a.prefs.IsOverridden() {
				source = "saved"
			}
			fmt.Printf("%s (%s)\n", a.prefs.BaseURL(), source)
			return nil
		}
		if len(args) > 0 && resetEndpoint {
			return fmt.Errorf("a URL and --reset cannot be used together")
		}

		eng := a.newEngine()
		defer eng.Close()

		var u string
		if resetEndpoint {
			u, err = eng.ResetEndpoint(ctx)
		} else {
			u, err = eng.ChangeEndpoint(ctx, args[0])
		}
		if err != nil {
			return fmt.Errorf("changing endpoint: %w", err)
		}

		fmt.Printf("%s %s\n", u, badge(eng.Snapshot().Connection))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(endpointCmd)
	endpointCmd.Flags().BoolVar(&resetEndpoint, "reset", false, "Go back to the configured base_url")
}
