// Command prefctl reads, writes and serves folder-scoped preferences.
package main

import (
	"fmt"
	"os"

	"github.com/kbukum/prefkit/cmd/prefctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
