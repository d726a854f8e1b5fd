// Command utterlens queries the utterance analytics engine from the shell.
// Every subcommand prints indented JSON on stdout; logs go to stderr.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "utterlens:", err)
		os.Exit(1)
	}
}
