// Command wavectl serves and administers the wave quorum matching engine.
package main

import (
	"fmt"
	"os"

	"github.com/reagankangfitness-droid/sweatbuddy-sea-web-sub003/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
