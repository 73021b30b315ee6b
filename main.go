// polychat - one chat client for many LLM providers.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"os"

	"github.com/jeranaias/polychat/internal/cli"
	"github.com/jeranaias/polychat/internal/display"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	// Sync version info with cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse(os.Args[1:])

	// Help and version need no config, store, or credentials.
	switch cmd {
	case cli.CmdHelp:
		cli.PrintUsage()
		return
	case cli.CmdVersion:
		cli.PrintVersion()
		return
	}

	app, err := cli.NewApp(args)
	if err != nil {
		display.Error(err)
		os.Exit(1)
	}
	defer app.Close()

	if err := app.Run(cmd, args); err != nil {
		display.Error(err)
		app.Close()
		os.Exit(1)
	}
}
