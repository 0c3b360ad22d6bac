package main

import (
	"fmt"
	"os"

	"github.com/temirov/agentready/cmd/cli"
)

const (
	exitErrorTemplateConstant = "%s\n"
)

// main executes the agentready command-line application.
func main() {
	if executionError := cli.Execute(); executionError != nil {
		if message := cli.ErrorMessage(executionError); len(message) > 0 {
			fmt.Fprintf(os.Stderr, exitErrorTemplateConstant, message)
		}
		os.Exit(cli.ExitCode(executionError))
	}
}
