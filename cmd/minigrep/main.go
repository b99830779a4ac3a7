// Command minigrep prints the lines of a file that contain a query.
//
//	minigrep <query> <path>
//
// Set INSENSITIVE=1 for a case-insensitive search.
package main

import (
	"fmt"
	"os"

	"jobpool/internal/search"
)

func main() {
	cfg, err := search.Build(os.Args[1:], os.Getenv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Run(os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
