package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// NewCommentsCommand groups the comment subcommands.
func NewCommentsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "comments",
		Short: "Read and write comments on a post",
	}

	cmd.AddCommand(&cobra.Command{
		Use:           "list <postId>",
		Short:         "List the comments on a post",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := connect(rootOpts)
			if err != nil {
				return err
			}
			comments, err := c.API.ListComments(commandContext(cmd), args[0])
			if err != nil {
				return err
			}
			return printer{rootOpts.Format, cmd.OutOrStdout()}.emit(comments, func(w io.Writer) {
				printComments(w, comments)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:           "add <postId> <content>...",
		Short:         "Comment on a post",
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := requireSession(rootOpts)
			if err != nil {
				return err
			}
			comment, err := c.API.CreateComment(commandContext(cmd), args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			return printer{rootOpts.Format, cmd.OutOrStdout()}.emit(comment, func(w io.Writer) {
				fmt.Fprintf(w, "Added comment %s\n", comment.ID)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:           "edit <postId> <commentId> <content>...",
		Short:         "Change the text of your comment",
		Args:          cobra.MinimumNArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := requireSession(rootOpts)
			if err != nil {
				return err
			}
			comment, err := c.API.UpdateComment(commandContext(cmd), args[0], args[1], strings.Join(args[2:], " "))
			if err != nil {
				return err
			}
			return printer{rootOpts.Format, cmd.OutOrStdout()}.emit(comment, func(w io.Writer) {
				fmt.Fprintf(w, "Updated comment %s\n", comment.ID)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:           "delete <postId> <commentId>",
		Short:         "Delete your comment",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := requireSession(rootOpts)
			if err != nil {
				return err
			}
			if err := c.API.DeleteComment(commandContext(cmd), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted comment %s\n", args[1])
			return nil
		},
	})

	return cmd
}
