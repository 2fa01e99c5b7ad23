package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/five82/matdeck/internal/actions"
	"github.com/five82/matdeck/internal/app"
	"github.com/five82/matdeck/internal/satapi"
)

func (c *cli) loginCommand() *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store a bearer token for the asset service",
		Long: `Store a bearer token in the preferences file. Without --token the token
is read from the first line of stdin, so it stays out of shell history:

  pass show sat/token | matdeck login`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(token) == "" {
				line, err := bufio.NewReader(c.in).ReadString('\n')
				if err != nil && line == "" {
					return errors.New("no token given: pass --token or pipe it on stdin")
				}
				token = line
			}
			token = strings.TrimSpace(token)
			if token == "" {
				return errors.New("token is empty")
			}
			return c.withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				if err := env.Tokens.SetToken(token); err != nil {
					return fmt.Errorf("save token: %w", err)
				}
				fmt.Fprintln(c.out, formatSuccess("Token saved"))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "bearer token")
	return cmd
}

func (c *cli) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				if err := env.Tokens.ClearToken(); err != nil {
					return fmt.Errorf("clear token: %w", err)
				}
				fmt.Fprintln(c.out, formatSuccess("Logged out"))
				return nil
			})
		},
	}
}

func (c *cli) statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check the connection to the asset service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				auth := "none"
				if env.Tokens.Token() != "" {
					auth = "token stored"
				}
				fmt.Fprintf(c.out, "%s %s\n", styleBold.Render(fmt.Sprintf("%-12s", "Service")), env.Client.BaseURL())
				fmt.Fprintf(c.out, "%s %s\n", styleBold.Render(fmt.Sprintf("%-12s", "Auth")), auth)
				fmt.Fprintf(c.out, "%s %s\n", styleBold.Render(fmt.Sprintf("%-12s", "Log")), env.Config.LogFile)

				health, err := env.Client.Health(ctx)
				if err != nil {
					fmt.Fprintf(c.out, "%s %s\n", styleBold.Render(fmt.Sprintf("%-12s", "Health")), styleError.Render(healthProblem(err)))
					return errFailed
				}
				status := health.Status
				if status == "" {
					status = "ok"
				}
				fmt.Fprintf(c.out, "%s %s\n", styleBold.Render(fmt.Sprintf("%-12s", "Health")), styleSuccess.Render(status))
				return nil
			})
		},
	}
}

func healthProblem(err error) string {
	switch {
	case satapi.IsUnauthorized(err):
		return "unauthorized (run matdeck login)"
	case satapi.IsTransport(err):
		return actions.UserMessage(err)
	default:
		return err.Error()
	}
}
