// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package stream implements the stream publisher (C3) and stream
// subscriber (C4): periodic schema broadcast, data-frame publish with
// schema validation, and a receive loop that caches schemas and
// delivers validated data frames through a bounded, backpressured
// channel.
package stream

import "errors"

// ErrNotRunning is returned by Publisher.Publish when called before
// Start or after Stop.
var ErrNotRunning = errors.New("stream: publisher is not running")

// ErrSchemaMismatch is returned by Publisher.Publish when the frame's
// schema_id does not equal the publisher's own schema id.
var ErrSchemaMismatch = errors.New("stream: data frame schema_id does not match publisher schema")

// ErrAlreadySubscribed is returned by Subscriber.Subscribe when a
// subscription already exists on this subscriber instance.
var ErrAlreadySubscribed = errors.New("stream: already subscribed to a source")

// ErrNotSubscribed is returned by operations that require an active
// subscription (GetSchema, Unsubscribe) when none exists.
var ErrNotSubscribed = errors.New("stream: not subscribed")

// ErrTimeout is returned by GetSchema when no schema arrives within the
// deadline.
var ErrTimeout = errors.New("stream: timed out waiting for schema")
