// Command pyexec runs Python snippets and pip with a project's interpreter.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/jmgilman/pyexec/internal/cmd"
	"github.com/jmgilman/pyexec/internal/harness"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

// exitCode mirrors the child's exit status for snippet failures. Its stderr
// has already been printed, so only other errors are reported here.
func exitCode(err error) int {
	var exitErr *harness.ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Code > 0 {
			return exitErr.Code
		}
		return 1
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return 1
}
