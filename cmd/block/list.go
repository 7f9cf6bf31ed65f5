package main

import (
	"flag"
	"fmt"
	"io"
)

type listCommand struct{}

// Name implements command interface.
func (cmd *listCommand) Name() string {
	return "list"
}

func (cmd *listCommand) Help() string {
	return "Show the list of available block kinds"
}

func (cmd *listCommand) Register(*flag.FlagSet) {}

func (cmd *listCommand) Run(w io.Writer) error {
	fmt.Fprintln(w, "Available kinds:")
	for _, k := range kindNames() {
		fmt.Fprintf(w, "\t%s\t%s\n", k, kinds[k].help)
	}
	return nil
}
