// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package natsbus

import (
	"fmt"

	"github.com/hiltest/hilcore/pkg/telemetry"
)

// DefaultSubjectPrefix is the subject prefix publishers and subscribers
// use when none is configured.
const DefaultSubjectPrefix = "telemetry"

// SchemaSubject returns "{prefix}.{source_id}.schema".
func SchemaSubject(prefix string, source telemetry.SourceId) string {
	return fmt.Sprintf("%s.%s.schema", prefix, source)
}

// DataSubject returns "{prefix}.{source_id}.data".
func DataSubject(prefix string, source telemetry.SourceId) string {
	return fmt.Sprintf("%s.%s.data", prefix, source)
}

// SourceWildcard returns "{prefix}.{source_id}.*", matching both the
// schema and data subjects of one source — used as the subject filter
// when a publisher ensures its backing stream.
func SourceWildcard(prefix string, source telemetry.SourceId) string {
	return fmt.Sprintf("%s.%s.*", prefix, source)
}

// PrefixWildcard returns "{prefix}.>", matching every subject under a
// prefix.
func PrefixWildcard(prefix string) string {
	return fmt.Sprintf("%s.>", prefix)
}
