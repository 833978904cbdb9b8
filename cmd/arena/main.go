// FILE: cmd/arena/main.go

// Command arena runs tournaments between UCI chess engines.
package main

import (
	"fmt"
	"os"

	"enginearena/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(cli.GetExitCode(err))
}
