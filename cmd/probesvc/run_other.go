//go:build !windows

package main

import "github.com/urfave/cli"

func run(ctx *cli.Context) error {
	opts, err := parseOptions(ctx)
	if err != nil {
		return err
	}
	return runConsole(opts)
}
