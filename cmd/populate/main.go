// Command populate compiles query-string requests into query plans over
// declared shapes and runs them against a SQLite document store.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/populate/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "populate: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
