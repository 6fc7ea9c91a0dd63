// Command relsync resolves nested queries and synchronizes nested mutations
// against a relational schema declared in CUE.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/relsync/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
