package main

import (
	"flag"
	"fmt"
	"io"
	"os"
)

type app struct {
	args   []string
	output io.Writer
}

type command interface {
	Name() string
	Help() string
	Run(w io.Writer) error
	Register(*flag.FlagSet)
}

func (a *app) run() int {
	cmdName, args := parseArgs(a.args)
	if cmdName == "" {
		printUsage(a.output)
		return errorExitCode
	}

	for _, cmd := range commands {
		if cmd.Name() != cmdName {
			continue
		}
		flags := flag.NewFlagSet(cmdName, flag.ContinueOnError)
		flags.SetOutput(a.output)
		cmd.Register(flags)
		if err := flags.Parse(args); err != nil {
			return errorExitCode
		}
		if err := cmd.Run(a.output); err != nil {
			fmt.Fprintf(a.output, "Command failed: %v\n", err)
			return errorExitCode
		}
		return successExitCode
	}
	fmt.Fprintf(a.output, "Unknown command %q\n\n", cmdName)
	printUsage(a.output)
	return errorExitCode
}

const (
	successExitCode = 0
	errorExitCode   = 1
)

var commands = []command{
	&runCommand{},
	&listCommand{},
}

func main() {
	c := app{
		args:   os.Args,
		output: os.Stdout,
	}
	os.Exit(c.run())
}

func parseArgs(args []string) (string, []string) {
	if len(args) < 2 {
		return "", nil
	}
	return args[1], args[2:]
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Block runs signal processing graphs described in YAML")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: block <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, cmd := range commands {
		fmt.Fprintf(w, "\t%s\t%s\n", cmd.Name(), cmd.Help())
	}
}
