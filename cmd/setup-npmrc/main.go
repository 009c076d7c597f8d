package main

import (
	"os"

	"github.com/majorcontext/setup-npmrc/cmd/setup-npmrc/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
