package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"inkwell/internal/reconcile"

	"github.com/spf13/cobra"
)

// NewWatchCommand creates the live comment view.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <postId>",
		Short: "Follow a post's comments live and add your own",
		Long: `Follow a post's comments live and add your own.

The list is printed again whenever it changes. Every line typed on stdin is
posted as a comment, except for these commands:

  /edit <commentId> <text>   change one of your comments
  /delete <commentId>        delete one of your comments
  /quit                      stop watching (so do Ctrl-C and end of input)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return watch(cmd, rootOpts, args[0])
		},
	}
}

func watch(cmd *cobra.Command, opts *RootOptions, postID string) error {
	c, err := connect(opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()
	var outMu sync.Mutex
	render := func(st reconcile.State) {
		outMu.Lock()
		defer outMu.Unlock()
		printState(out, st)
	}

	logger := slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: slog.LevelWarn}))
	view := reconcile.NewView(c.API, reconcile.Realtime(c.Realtime), render, reconcile.WithLogger(logger))
	scope := view.Show(ctx, postID)
	defer view.Close()

	lines := readLines(ctx, cmd.InOrStdin())
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := handleLine(ctx, scope, line, errOut, &outMu); quit {
				return nil
			}
		}
	}
}

// readLines feeds r line by line until EOF or ctx ends.
func readLines(ctx context.Context, r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}

// handleLine applies one input line to the scope and reports whether to stop.
// Failures show up in the rendered state; only delete failures, which the state
// does not carry, are printed here.
func handleLine(ctx context.Context, scope *reconcile.Scope, line string, errOut io.Writer, mu *sync.Mutex) bool {
	cmd, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	switch cmd {
	case "/quit":
		return true
	case "/edit":
		id, text, _ := strings.Cut(strings.TrimSpace(rest), " ")
		_ = scope.UpdateComment(ctx, id, text)
	case "/delete":
		if err := scope.DeleteComment(ctx, strings.TrimSpace(rest)); err != nil {
			mu.Lock()
			fmt.Fprintf(errOut, "could not delete comment: %v\n", err)
			mu.Unlock()
		}
	default:
		scope.SetDraft(line)
		_ = scope.SubmitDraft(ctx)
	}
	return false
}
