package main

import (
	"fmt"
	"os"

	"spending/internal/cli"
)

func main() {
	if err := cli.NewCLI(cli.Options{}).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
