package main

import (
	"fmt"
	"os"
)

func main() {
	if err := run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "hqx error:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if closeLog, err := initLogging(); err == nil {
		defer closeLog()
	}

	maybeStartInvocationUpdateCheck(args)
	cmd := newRootCommand(args)
	return cmd.Execute()
}
