// Package main provides the entry point for the OllamaBot CLI.
package main

import (
	"fmt"
	"os"

	"github.com/cadenroberts/OllamaBot-sub010/cmd/ollamabot/commands"
)

func main() {
	err := commands.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(commands.ExitCode(err))
}
