package cli

import (
	"context"
	"fmt"
	"io"

	"inkwell/internal/client"

	"github.com/spf13/cobra"
)

// CredentialOptions holds flags for signup and login.
type CredentialOptions struct {
	*RootOptions
	Email    string
	Password string
}

func NewSignUpCommand(rootOpts *RootOptions) *cobra.Command {
	return newCredentialCommand(rootOpts, "signup", "Create an account and sign in", func(ctx context.Context, c *client.Client, email, password string) (*client.Session, error) {
		return c.Sessions.SignUp(ctx, email, password)
	})
}

func NewLoginCommand(rootOpts *RootOptions) *cobra.Command {
	return newCredentialCommand(rootOpts, "login", "Sign in to an existing account", func(ctx context.Context, c *client.Client, email, password string) (*client.Session, error) {
		return c.Sessions.SignIn(ctx, email, password)
	})
}

func newCredentialCommand(rootOpts *RootOptions, use, short string, authenticate func(context.Context, *client.Client, string, string) (*client.Session, error)) *cobra.Command {
	opts := &CredentialOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           use + " --email EMAIL --password PASSWORD",
		Short:         short,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := connect(opts.RootOptions)
			if err != nil {
				return err
			}
			session, err := authenticate(commandContext(cmd), c, opts.Email, opts.Password)
			if err != nil {
				return err
			}
			if err := saveSession(opts.RootOptions, c); err != nil {
				return err
			}
			return printer{opts.Format, cmd.OutOrStdout()}.emit(session.User, func(w io.Writer) {
				fmt.Fprintf(w, "Signed in as %s\n", session.User.Email)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Email, "email", "", "account email")
	cmd.Flags().StringVar(&opts.Password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func NewLogoutCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "logout",
		Short:         "Sign out and forget the saved session",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := connect(rootOpts)
			if err != nil {
				return err
			}
			signOutErr := c.Sessions.SignOut(commandContext(cmd))
			// The local session is gone either way.
			if err := saveSession(rootOpts, c); err != nil {
				return err
			}
			if signOutErr != nil {
				return WrapExitError(ExitFailure, "signed out locally, server sign-out failed", signOutErr)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func NewWhoAmICommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "whoami",
		Short:         "Show the signed-in account",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := requireSession(rootOpts)
			if err != nil {
				return err
			}
			user, err := c.Sessions.User(commandContext(cmd))
			if err != nil {
				return err
			}
			return printer{rootOpts.Format, cmd.OutOrStdout()}.emit(user, func(w io.Writer) {
				fmt.Fprintf(w, "%s (%s)\n", user.Email, user.ID)
			})
		},
	}
}
