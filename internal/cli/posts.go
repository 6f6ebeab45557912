package cli

import (
	"fmt"
	"io"

	"inkwell/internal/client"
	"inkwell/internal/models"

	"github.com/spf13/cobra"
)

// NewPostsCommand groups the post subcommands.
func NewPostsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "posts",
		Short: "List, read and manage posts",
	}

	cmd.AddCommand(newPostsListCommand(rootOpts))
	cmd.AddCommand(newPostsShowCommand(rootOpts))
	cmd.AddCommand(newPostsCreateCommand(rootOpts))
	cmd.AddCommand(newPostsUpdateCommand(rootOpts))
	cmd.AddCommand(newPostsDeleteCommand(rootOpts))

	return cmd
}

// PostsListOptions holds flags for posts list.
type PostsListOptions struct {
	*RootOptions
	Page   int
	Limit  int
	Search string
}

func newPostsListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PostsListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List posts, newest first",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := connect(opts.RootOptions)
			if err != nil {
				return err
			}
			posts, err := c.API.ListPosts(commandContext(cmd), client.ListPostsParams{
				Page:   opts.Page,
				Limit:  opts.Limit,
				Search: opts.Search,
			})
			if err != nil {
				return err
			}
			return printer{opts.Format, cmd.OutOrStdout()}.emit(posts, func(w io.Writer) {
				printPosts(w, posts)
			})
		},
	}

	cmd.Flags().IntVar(&opts.Page, "page", 1, "page number, starting at 1")
	cmd.Flags().IntVar(&opts.Limit, "limit", 10, "posts per page")
	cmd.Flags().StringVar(&opts.Search, "search", "", "only posts whose title contains this text")

	return cmd
}

func newPostsShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <postId>",
		Short:         "Show one post",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := connect(rootOpts)
			if err != nil {
				return err
			}
			post, err := c.API.GetPost(commandContext(cmd), args[0])
			if err != nil {
				return err
			}
			return printer{rootOpts.Format, cmd.OutOrStdout()}.emit(post, func(w io.Writer) {
				printPost(w, post)
			})
		},
	}
}

// PostWriteOptions holds flags for posts create and update.
type PostWriteOptions struct {
	*RootOptions
	Title   string
	Content string
}

func newPostsCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PostWriteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "create --title TITLE --content CONTENT",
		Short:         "Publish a post",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := requireSession(opts.RootOptions)
			if err != nil {
				return err
			}
			post, err := c.API.CreatePost(commandContext(cmd), opts.Title, opts.Content)
			if err != nil {
				return err
			}
			return printer{opts.Format, cmd.OutOrStdout()}.emit(post, func(w io.Writer) {
				fmt.Fprintf(w, "Created post %s\n", post.ID)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Title, "title", "", "post title")
	cmd.Flags().StringVar(&opts.Content, "content", "", "post body")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("content")

	return cmd
}

func newPostsUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PostWriteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "update <postId> [--title TITLE] [--content CONTENT]",
		Short:         "Change the title or body of your post",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch models.PostPatch
			if cmd.Flags().Changed("title") {
				patch.Title = &opts.Title
			}
			if cmd.Flags().Changed("content") {
				patch.Content = &opts.Content
			}
			if patch.Title == nil && patch.Content == nil {
				return NewExitError(ExitCommandError, "nothing to update: pass --title and/or --content")
			}

			c, err := requireSession(opts.RootOptions)
			if err != nil {
				return err
			}
			post, err := c.API.UpdatePost(commandContext(cmd), args[0], patch)
			if err != nil {
				return err
			}
			return printer{opts.Format, cmd.OutOrStdout()}.emit(post, func(w io.Writer) {
				fmt.Fprintf(w, "Updated post %s\n", post.ID)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Title, "title", "", "new title")
	cmd.Flags().StringVar(&opts.Content, "content", "", "new body")

	return cmd
}

func newPostsDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete <postId>",
		Short:         "Delete your post and its comments",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := requireSession(rootOpts)
			if err != nil {
				return err
			}
			if err := c.API.DeletePost(commandContext(cmd), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted post %s\n", args[0])
			return nil
		},
	}
}
