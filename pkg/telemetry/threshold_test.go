// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package telemetry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestThresholdBoundaryCorrectness(t *testing.T) {
	th := Threshold{
		Channel: "voltage",
		Low:     &ThresholdBound{Value: 4.5, Bound: Inclusive},
		High:    &ThresholdBound{Value: 5.5, Bound: Exclusive},
	}

	assert.True(t, th.Check(4.5))
	assert.False(t, th.Check(4.499999))
	assert.False(t, th.Check(5.5))
	assert.True(t, th.Check(5.499999))
	assert.False(t, th.Check(math.NaN()))
}

func TestThresholdNoBoundsIsAny(t *testing.T) {
	th := Threshold{Channel: "voltage"}
	assert.True(t, th.Check(1e300))
	assert.True(t, th.Check(-1e300))
}
