/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ayoubnajjout/ai-linux-cmd-assistant/internal/lxassist/session"
)

var (
	loginID       string
	loginUsername string
)

// loginCmd represents the login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Save the identity to chat as",
	Long: `Save the identity issued by the backend's sign-in flow.

The identity is stored in the state store and used by chat, ask and history
until you log out or the backend stops recognizing it.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := loadApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		s, err := a.sessions.Login(ctx, loginID, loginUsername)
		if err != nil {
			return fmt.Errorf("logging in: %w", err)
		}
		fmt.Printf("Logged in as %s (%s)\n", s.GetDisplayName(), s.ID)
		return nil
	},
}

// logoutCmd represents the logout command
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the saved identity",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := loadApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.sessions.Logout(ctx); err != nil {
			return fmt.Errorf("logging out: %w", err)
		}
		a.metrics.ObserveSessionEnd("logout")
		fmt.Println("Logged out.")
		return nil
	},
}

// whoamiCmd represents the whoami command
var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the saved identity",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := loadApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		s, err := a.sessions.Load(ctx)
		if errors.Is(err, session.ErrNoSession) {
			fmt.Println("Not logged in.")
			return nil
		}
		if err != nil {
			return err
		}

		fmt.Printf("ID: %s\n", s.ID)
		if s.Username != "" {
			fmt.Printf("Username: %s\n", s.Username)
		}
		if !s.CreatedAt.IsZero() {
			fmt.Printf("Since: %s\n", s.CreatedAt.Local().Format("2006-01-02 15:04:05"))
		}
		for k, v := range s.Attributes {
			fmt.Printf("%s: %s\n", k, v)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)

	loginCmd.Flags().StringVar(&loginID, "id", "", "User ID issued by the backend")
	loginCmd.Flags().StringVar(&loginUsername, "username", "", "Display name")
	loginCmd.MarkFlagRequired("id")
}
