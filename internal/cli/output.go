package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/tabwriter"
	"time"

	"inkwell/internal/client"
	"inkwell/internal/models"
	"inkwell/internal/reconcile"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // The API rejected the request or could not be reached
	ExitCommandError = 2 // Bad flags or arguments
	ExitUnauthorized = 3 // Not signed in, or the session expired
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error. API 401 answers map to
// ExitUnauthorized; anything else that is not an ExitError is ExitFailure.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	var apiErr *client.Error
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
		return ExitUnauthorized
	}
	return ExitFailure
}

// printer writes command results as text or JSON.
type printer struct {
	format string
	w      io.Writer
}

func (p printer) emit(data any, text func(io.Writer)) error {
	if p.format == "json" {
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	}
	text(p.w)
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func printPosts(w io.Writer, posts []models.Post) {
	if len(posts) == 0 {
		fmt.Fprintln(w, "No posts.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tAUTHOR\tCREATED")
	for _, p := range posts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ID, p.Title, shortID(p.UserID), p.CreatedAt.Local().Format(time.DateTime))
	}
	_ = tw.Flush()
}

func printPost(w io.Writer, p *models.Post) {
	fmt.Fprintf(w, "%s\n%s\n\n%s\n", p.ID, p.Title, p.Content)
}

func printComment(w io.Writer, c models.Comment) {
	fmt.Fprintf(w, "[%s] %s: %s\n", c.ID, shortID(c.UserID), c.Content)
}

func printComments(w io.Writer, comments []models.Comment) {
	if len(comments) == 0 {
		fmt.Fprintln(w, "No comments yet.")
		return
	}
	for _, c := range comments {
		printComment(w, c)
	}
}

// printState renders one snapshot of a live comment view.
func printState(w io.Writer, st reconcile.State) {
	status := "live"
	if !st.Loaded {
		status = "loading"
	}
	fmt.Fprintf(w, "--- post %s · %d comments · %s ---\n", shortID(st.PostID), len(st.Comments), status)
	for _, c := range st.Comments {
		printComment(w, c)
	}
	if st.Error != "" {
		fmt.Fprintf(w, "! %s\n", st.Error)
	}
	if st.Draft != "" {
		fmt.Fprintf(w, "> %s\n", strings.TrimSpace(st.Draft))
	}
}
