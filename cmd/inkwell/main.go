// Command inkwell is the command line client for the Inkwell API.
package main

import (
	"fmt"
	"os"

	"inkwell/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
