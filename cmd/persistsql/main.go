// Command persistsql compiles query clauses over persist client calls into
// SQL templates and rewrites the calls to carry them.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/persistsql/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		code := cli.GetExitCode(err)
		// Commands report their own errors; cobra-level errors
		// (unknown flags, bad arguments) are not.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, "Error:", err)
			code = cli.ExitCommandError
		}
		os.Exit(code)
	}
}
