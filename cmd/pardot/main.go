// Command pardot is a small command-line client for the Pardot API.
//
// Credentials are read from PARDOT_* environment variables or a .env file
// in the working directory.
package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	cmd := newRootCmd(&app{out: os.Stdout})
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
