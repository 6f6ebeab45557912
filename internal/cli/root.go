// Package cli implements the inkwell command line client.
package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"inkwell/internal/client"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	APIURL      string
	SessionFile string
	Format      string // "json" | "text"
	Timeout     time.Duration
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// DefaultAPIURL is used when neither --api nor INKWELL_API_URL is set.
const DefaultAPIURL = "http://localhost:8080"

// NewRootCommand creates the root command. Global flags can also be set through
// INKWELL_API_URL, INKWELL_SESSION_FILE, INKWELL_FORMAT and INKWELL_TIMEOUT.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("inkwell")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "inkwell",
		Short:         "Inkwell - read and write posts and comments",
		Long:          "A command line client for the Inkwell API, including a live comment view.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			opts.APIURL = v.GetString("api-url")
			opts.SessionFile = v.GetString("session-file")
			opts.Format = v.GetString("format")
			opts.Timeout = v.GetDuration("timeout")

			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			if opts.SessionFile == "" {
				opts.SessionFile = defaultSessionFile()
			}
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.String("api", DefaultAPIURL, "API base URL")
	flags.String("session-file", "", "where the login session is kept (default: user config dir)")
	flags.String("format", "text", "output format (json|text)")
	flags.Duration("timeout", client.DefaultTimeout, "per-request timeout")
	_ = v.BindPFlag("api-url", flags.Lookup("api"))
	_ = v.BindPFlag("session-file", flags.Lookup("session-file"))
	_ = v.BindPFlag("format", flags.Lookup("format"))
	_ = v.BindPFlag("timeout", flags.Lookup("timeout"))

	cmd.AddCommand(NewSignUpCommand(opts))
	cmd.AddCommand(NewLoginCommand(opts))
	cmd.AddCommand(NewLogoutCommand(opts))
	cmd.AddCommand(NewWhoAmICommand(opts))
	cmd.AddCommand(NewPostsCommand(opts))
	cmd.AddCommand(NewCommentsCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))

	return cmd
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "inkwell", "session.json")
}
