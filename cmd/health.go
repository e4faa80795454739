/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ayoubnajjout/ai-linux-cmd-assistant/internal/lxassist/monitor"
)

var (
	healthRetries int
	healthTimeout time.Duration
)

// healthCmd represents the health command
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the backend is reachable",
	Long: `Check that the backend answers its health endpoint.

Timeouts and network failures are retried, waiting 1s, 2s, 3s... between
attempts. Any other failure stops immediately. The per-attempt timeout is
capped at 8s.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := loadApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		retries := a.cfg.ProbeMaxRetries
		if cmd.Flags().Changed("retries") {
			retries = healthRetries
		}
		timeout := a.cfg.ProbeRetryTimeout
		if cmd.Flags().Changed("timeout") {
			timeout = healthTimeout
		}

		m := monitor.New(a.client, monitor.WithLogger(a.log), monitor.WithMetrics(a.metrics))
		err = m.ProbeWithRetry(ctx, retries, timeout)

		fmt.Printf("%s %s\n", a.client.BaseURL(), badge(m.State()))
		return err
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)

	healthCmd.Flags().IntVar(&healthRetries, "retries", 2, "Extra attempts after the first probe")
	healthCmd.Flags().DurationVar(&healthTimeout, "timeout", 5*time.Second, "Timeout for each attempt (max 8s)")
}
