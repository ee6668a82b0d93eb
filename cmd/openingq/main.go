package main

import (
	"fmt"
	"os"

	"github.com/park285/opening-query/cmd/openingq/cli"
)

var (
	version = "0.1.0-dev"
	commit  = "main"
)

func main() {
	root := cli.NewRootCommand(cli.VersionInfo{Version: version, Commit: commit})

	root.AddCommand(cli.NewServeCommand())
	root.AddCommand(cli.NewOpeningsCommand())
	root.AddCommand(cli.NewRecognizeCommand())
	root.AddCommand(cli.NewPlayersCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
