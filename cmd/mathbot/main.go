package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/mathbot/internal/cli"
	"github.com/cloo-solutions/mathbot/internal/cli/client"
)

var version = "dev"

func main() {
	rootCmd := client.RootCmd(version)
	cli.AddHelpJSONFlag(rootCmd)

	if handled, err := cli.HandleHelpJSON(rootCmd, os.Args[1:], os.Stdout); handled {
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
