// Package main is the entry point for the phpbc CLI.
package main

import (
	"os"

	"github.com/AndreyAkinshin/phpbc/internal/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
