// ddb runs development tools for the single-table store.
//
// # Installation
//
//	go install github.com/acksell/tablekit/dynamodb/cmd/ddb@latest
//
// # Commands
//
//	ddb serve     Start the debug API over an in-memory store
//	ddb version   Print the version
//
// # Configuration
//
// ddb serve reads ddb.yaml from the working directory or the nearest parent
// directory that has one:
//
//	port: 3070
//	logLevel: debug
//	table:
//	  name: app
//	seed: ./seed.yaml
package main

import (
	"fmt"
	"os"
)

const version = "0.2.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "serve", "ui":
		err = runServe(args)
	case "help", "-h", "--help":
		printUsage()
		return
	case "version", "-v", "--version":
		fmt.Printf("ddb version %s\n", version)
		return
	default:
		fmt.Fprintf(os.Stderr, "ddb: unknown command %q\n\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "ddb %s: %v\n", cmd, err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`ddb - single-table development tools

Usage:
  ddb <command> [flags]

Commands:
  serve   Start the debug API over an in-memory store
  version Print the version

Examples:
  # Start with defaults or ddb.yaml:
  ddb serve

  # Load records and log every request:
  ddb serve --seed ./seed.yaml --log-level debug

Configuration (optional):
  Create ddb.yaml for defaults:

    port: 3070         # API server port
    logLevel: info     # debug, info, warn, error
    table:
      name: app        # GSI1..GSI3 unless gsis are listed
    seed: ./seed.yaml  # records loaded at startup

Run 'ddb <command> --help' for more information on a command.`)
}
