package main

import (
	"os"

	"github.com/obsidianstack/rateboost/agent/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
