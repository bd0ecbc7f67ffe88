package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/mathbot/internal/cli"
	"github.com/cloo-solutions/mathbot/internal/cli/admin"
)

var version = "dev"

func main() {
	rootCmd := admin.RootCmd(version)
	cli.AddHelpJSONFlag(rootCmd)

	args := os.Args[1:]
	if len(args) == 0 {
		args = []string{"serve"}
	}

	if handled, err := cli.HandleHelpJSON(rootCmd, args, os.Stdout); handled {
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
