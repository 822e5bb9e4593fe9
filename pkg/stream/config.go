// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package stream

import (
	"time"

	"github.com/hiltest/hilcore/pkg/natsbus"
)

// DefaultBroadcastInterval is the schema-broadcast cadence used when a
// PublisherConfig does not set one.
const DefaultBroadcastInterval = 1 * time.Second

// DefaultQueueCapacity is the subscriber delivery channel's capacity
// when a SubscriberConfig does not set one. Large enough to absorb a
// few seconds of typical DAQ-rate data frames without masking a
// genuinely stalled consumer.
const DefaultQueueCapacity = 256

// PublisherConfig configures a Publisher.
type PublisherConfig struct {
	Broker            natsbus.Config
	SubjectPrefix     string
	BroadcastInterval time.Duration
}

func (c PublisherConfig) prefix() string {
	if c.SubjectPrefix == "" {
		return natsbus.DefaultSubjectPrefix
	}
	return c.SubjectPrefix
}

func (c PublisherConfig) interval() time.Duration {
	if c.BroadcastInterval <= 0 {
		return DefaultBroadcastInterval
	}
	return c.BroadcastInterval
}

// SubscriberConfig configures a Subscriber.
type SubscriberConfig struct {
	Broker         natsbus.Config
	SubjectPrefix  string
	QueueCapacity  int
	DeliveryPolicy natsbus.DeliveryPolicy
}

func (c SubscriberConfig) prefix() string {
	if c.SubjectPrefix == "" {
		return natsbus.DefaultSubjectPrefix
	}
	return c.SubjectPrefix
}

func (c SubscriberConfig) capacity() int {
	if c.QueueCapacity <= 0 {
		return DefaultQueueCapacity
	}
	return c.QueueCapacity
}
