// sdcli - image generation client for the stable-diffusion.cpp sd-server.
package main

import (
	"os"

	"github.com/sdcpp-tools/sdcli/cli/commands"
)

// ExitCoder is an interface for errors that have an exit code.
type ExitCoder interface {
	ExitCode() int
}

func main() {
	if err := commands.NewApp().Execute(); err != nil {
		if ec, ok := err.(ExitCoder); ok {
			os.Exit(ec.ExitCode())
		}
		os.Exit(1)
	}
}
