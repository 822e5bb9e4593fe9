// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/hiltest/hilcore/pkg/log"
)

// version is set via -ldflags "-X main.version=..." by release builds.
var version = "development"

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Fatalf("hilstation: parsing './.env' file failed: %s", err.Error())
	}

	if err := buildApp(version).Run(os.Args); err != nil {
		log.Errorf("hilstation: %s", err.Error())
		os.Exit(1)
	}
}
