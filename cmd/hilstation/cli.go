// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package main

import (
	"github.com/google/gops/agent"
	"github.com/urfave/cli/v2"

	"github.com/hiltest/hilcore/pkg/log"
)

// buildApp assembles the hilstation CLI, mirroring cc-backend's
// cli.go in spirit: a thin urfave/cli/v2 shell around a couple of
// subcommands, with logging flags shared across all of them.
func buildApp(version string) *cli.App {
	var gopsStarted bool

	return &cli.App{
		Name:    "hilstation",
		Usage:   "run HIL test cases and validate test-definition documents",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "loglevel", Value: "info", Usage: "debug, info, warn, or err"},
			&cli.BoolFlag{Name: "logdate", Value: false, Usage: "prefix log lines with date and time"},
			&cli.BoolFlag{Name: "gops", Value: false, Usage: "listen via github.com/google/gops/agent (for debugging)"},
		},
		Before: func(c *cli.Context) error {
			log.SetLogLevel(c.String("loglevel"))
			log.SetLogDateTime(c.Bool("logdate"))

			// See https://github.com/google/gops (runtime overhead is
			// almost zero).
			if c.Bool("gops") {
				if err := agent.Listen(agent.Options{}); err != nil {
					return err
				}
				gopsStarted = true
			}
			return nil
		},
		After: func(c *cli.Context) error {
			if gopsStarted {
				agent.Close()
			}
			return nil
		},
		Commands: []*cli.Command{
			runCommand(),
			validateTestdefCommand(),
		},
	}
}
