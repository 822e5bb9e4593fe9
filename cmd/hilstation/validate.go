// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/hiltest/hilcore/pkg/testdef"
)

func validateTestdefCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate-testdef",
		Usage:     "validate a test-definition document against the schema and threshold rules",
		ArgsUsage: "FILE",
		Action:    validateTestdefAction,
	}
}

func validateTestdefAction(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return cli.Exit("hilstation: validate-testdef requires a file argument", 1)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("hilstation: read %q: %w", path, err)
	}

	doc, err := testdef.Load(raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: invalid: %v\n", path, err)
		return cli.Exit("", 1)
	}

	fmt.Printf("%s: ok (%d environmental states, %d monitors)\n", path, len(doc.EnvironmentalStates), len(doc.Monitors))
	return nil
}
