package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

const (
	flagCfg = "cfg"
)

const (
	// App name
	appName = "disbursal-service"
	// version represents the program based on the git tag
	version = "v0.1.0"
)

func main() {
	app := cli.NewApp()
	app.Name = appName
	app.Version = version
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:     flagCfg,
			Aliases:  []string{"c"},
			Usage:    "Configuration `FILE`",
			Required: false,
		},
	}
	app.Commands = []*cli.Command{
		{
			Name:   "version",
			Usage:  "Application version and build",
			Action: versionCmd,
		},
		{
			Name:   "run",
			Usage:  "Run the disbursal service",
			Action: start,
			Flags:  flags,
		},
		{
			Name:   "set-roots",
			Usage:  "Commit the vault and/or account root",
			Action: setRoots,
			Flags: append([]cli.Flag{
				&cli.StringFlag{Name: flagVaultRoot, Usage: "vault root as hex field element"},
				&cli.StringFlag{Name: flagAccountRoot, Usage: "account root as 32 byte hex"},
			}, flags...),
		},
		{
			Name:   "register-tokens",
			Usage:  "Register token mappings from a JSON file",
			Action: registerTokens,
			Flags: append([]cli.Flag{
				&cli.StringFlag{Name: flagTokensFile, Usage: "JSON `FILE` with token associations", Required: true},
			}, flags...),
		},
		{
			Name:   "finalize",
			Usage:  "Permanently lock the admin surface",
			Action: finalize,
			Flags:  flags,
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		fmt.Printf("\nError: %v\n", err)
		os.Exit(1)
	}
}
