package cli

import (
	"context"
	"net/http"

	"inkwell/internal/client"

	"github.com/spf13/cobra"
)

// connect builds an API client and restores the saved session, if any.
func connect(opts *RootOptions) (*client.Client, error) {
	c, err := client.New(opts.APIURL, &http.Client{Timeout: opts.Timeout})
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid --api", err)
	}

	saved, err := client.LoadSessionFile(opts.SessionFile)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "could not read session", err)
	}
	c.Sessions.Restore(saved)
	return c, nil
}

// requireSession is connect for commands that need a signed-in user.
func requireSession(opts *RootOptions) (*client.Client, error) {
	c, err := connect(opts)
	if err != nil {
		return nil, err
	}
	if c.Sessions.Current() == nil {
		return nil, NewExitError(ExitUnauthorized, "not signed in, run `inkwell login` first")
	}
	return c, nil
}

func saveSession(opts *RootOptions, c *client.Client) error {
	if err := client.SaveSessionFile(opts.SessionFile, c.Sessions.Current()); err != nil {
		return WrapExitError(ExitFailure, "could not save session", err)
	}
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
