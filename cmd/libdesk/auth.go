package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/libdesk/internal/adapter"
	"github.com/mmcdole/libdesk/internal/api"
	"github.com/mmcdole/libdesk/internal/domain"
	"github.com/mmcdole/libdesk/internal/tui/styles"
	"github.com/spf13/cobra"
)

const authTimeout = 30 * time.Second

// setServer points the app at a new backend and saves it to config
func (a *app) setServer(url string) error {
	a.cfg.Server.URL = strings.TrimRight(strings.TrimSpace(url), "/")
	if err := adapter.SaveConfig(a.cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	a.client = api.NewClient(a.cfg.Server.URL, a.session, a.logger)
	if a.cfg.Server.Timeout > 0 {
		a.client.SetTimeout(a.cfg.Server.Timeout)
	}
	return nil
}

func newLoginCmd(configFile *string) *cobra.Command {
	var email, server string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and save the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configFile)
			if err != nil {
				return err
			}
			defer a.Close()

			if server != "" {
				if err := a.setServer(server); err != nil {
					return err
				}
			}
			if err := a.requireServer(); err != nil {
				return err
			}

			creds, err := api.NewPrompt().Credentials(email)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), authTimeout)
			defer cancel()
			res, err := a.client.Login(ctx, creds)
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			return a.begin(cmd, res)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email (prompted when empty)")
	cmd.Flags().StringVar(&server, "server", "", "backend URL, saved to config")
	return cmd
}

func newRegisterCmd(configFile *string) *cobra.Command {
	var reg domain.Registration
	var server string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a member account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configFile)
			if err != nil {
				return err
			}
			defer a.Close()

			if server != "" {
				if err := a.setServer(server); err != nil {
					return err
				}
			}
			if err := a.requireServer(); err != nil {
				return err
			}

			filled, err := api.NewPrompt().Registration(reg)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), authTimeout)
			defer cancel()
			res, err := a.client.Register(ctx, filled)
			if err != nil {
				return fmt.Errorf("registration failed: %w", err)
			}
			return a.begin(cmd, res)
		},
	}
	cmd.Flags().StringVar(&reg.FullName, "name", "", "full name")
	cmd.Flags().StringVar(&reg.Email, "email", "", "account email")
	cmd.Flags().StringVar(&reg.Phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&server, "server", "", "backend URL, saved to config")
	return cmd
}

func newLogoutCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and clear cached data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configFile)
			if err != nil {
				return err
			}
			defer a.Close()

			if !a.session.Authenticated() {
				fmt.Fprintln(cmd.OutOrStdout(), "Not logged in.")
				return nil
			}
			email := a.session.Email()
			if err := a.logout(); err != nil {
				return fmt.Errorf("logout incomplete: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged out %s.\n", email)
			return nil
		},
	}
}

// begin stores a fresh session and reports who is signed in
func (a *app) begin(cmd *cobra.Command, res *domain.AuthResult) error {
	if err := a.session.Begin(res); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	a.logger.Info("signed in", "email", res.Email, "role", res.Role)
	fmt.Fprintln(cmd.OutOrStdout(), styles.SuccessStyle.Render(fmt.Sprintf("✓ Signed in as %s (%s)", res.Email, res.Role)))
	return nil
}
