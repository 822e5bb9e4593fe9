// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package testdef

import "errors"

// ErrInvalidThreshold is returned at load time (never during
// monitor.Evaluate, which stays pure) for a threshold with incoherent
// bounds: low > high, or both bounds exclusive at the same value.
var ErrInvalidThreshold = errors.New("testdef: invalid threshold")

// ErrSchemaValidation wraps a jsonschema validation failure against the
// embedded test-definition schema.
var ErrSchemaValidation = errors.New("testdef: document failed schema validation")
