// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package testdef parses and validates the test-definition external
// file: case_parameters (an opaque scalar map), environmental_states,
// and monitors (per-state, per-channel threshold bounds). The file is
// JSON, not YAML — YAML parsing is explicitly out of scope.
// Loaders beyond "parse this in-memory JSON document" are out of scope
// too; callers own reading the bytes from disk, S3, or wherever the
// document lives.
package testdef

import (
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"net/url"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*
var schemaFiles embed.FS

func loadSchemaFile(s string) (io.ReadCloser, error) {
	u, err := url.Parse(s)
	if err != nil {
		return nil, err
	}
	return schemaFiles.Open(u.Path)
}

func init() {
	jsonschema.Loaders["embedFS"] = loadSchemaFile
}

// validateDocument checks raw against the embedded test-definition JSON
// Schema, which catches structural errors (missing required keys, wrong
// types, the "any" vs. bound oneOf) before a single Go struct is built.
func validateDocument(raw []byte) error {
	s, err := jsonschema.Compile("embedFS://schemas/testdef.schema.json")
	if err != nil {
		return fmt.Errorf("testdef: compile embedded schema: %w", err)
	}

	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("testdef: decode document: %w", err)
	}

	if err := s.Validate(v); err != nil {
		return fmt.Errorf("%w: %s", ErrSchemaValidation, err)
	}
	return nil
}
