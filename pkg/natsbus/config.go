// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package natsbus wraps a NATS JetStream connection with the broker
// capability the core needs: durable topics, subject publish,
// durable-consumer subscription with a choice of delivery-start policy,
// and per-message acknowledgement with delayed-ack backpressure.
package natsbus

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/hiltest/hilcore/pkg/log"
)

// Config configures a broker connection. Decoded with
// DisallowUnknownFields so a typo in a config file fails loudly instead
// of being silently ignored.
type Config struct {
	Address       string `json:"address"`
	Username      string `json:"username,omitempty"`
	Password      string `json:"password,omitempty"`
	CredsFilePath string `json:"creds-file-path,omitempty"`
}

const ConfigSchema = `{
    "type": "object",
    "description": "Configuration for the telemetry broker connection.",
    "properties": {
        "address": {
            "description": "Address of the NATS server (e.g., 'nats://localhost:4222').",
            "type": "string"
        },
        "username": {
            "description": "Username for NATS authentication (optional).",
            "type": "string"
        },
        "password": {
            "description": "Password for NATS authentication (optional).",
            "type": "string"
        },
        "creds-file-path": {
            "description": "Path to NATS credentials file for authentication (optional).",
            "type": "string"
        }
    },
    "required": ["address"]
}`

// DecodeConfig parses rawConfig into a Config, rejecting unknown keys.
func DecodeConfig(rawConfig json.RawMessage) (Config, error) {
	var cfg Config
	if rawConfig == nil {
		return cfg, fmt.Errorf("natsbus: empty configuration")
	}
	dec := json.NewDecoder(bytes.NewReader(rawConfig))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		log.Errorf("natsbus: invalid configuration: %s", err)
		return Config{}, err
	}
	if cfg.Address == "" {
		return Config{}, fmt.Errorf("natsbus: address is required")
	}
	return cfg, nil
}
