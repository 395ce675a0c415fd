package main

import (
	"fmt"
	"os"

	"github.com/mikedotexe/fastnear-compact-indexer/internal/cmd"
)

func main() {
	if err := cmd.NewRoot().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
