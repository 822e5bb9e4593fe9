// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package stream

import (
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/hiltest/hilcore/pkg/log"
	"github.com/hiltest/hilcore/pkg/metrics"
	"github.com/hiltest/hilcore/pkg/natsbus"
	"github.com/hiltest/hilcore/pkg/telemetry"
	"github.com/hiltest/hilcore/pkg/wire"
	"golang.org/x/time/rate"
)

// Publisher implements C3: periodic schema broadcast plus data-frame
// publish for a single schema/source.
type Publisher struct {
	cfg    PublisherConfig
	schema telemetry.StreamSchema

	client   *natsbus.Client
	ownsConn bool

	scheduler   gocron.Scheduler
	broadcastID *gocron.Job

	logLimiter *rate.Limiter

	mu      sync.Mutex
	running bool
}

// NewPublisher builds a publisher for schema using cfg. The publisher
// owns the broker connection it creates in Start and closes it in Stop.
func NewPublisher(cfg PublisherConfig, schema telemetry.StreamSchema) *Publisher {
	return &Publisher{
		cfg:        cfg,
		schema:     schema,
		logLimiter: rate.NewLimiter(rate.Every(10*time.Second), 1),
	}
}

// Start connects to the broker, ensures the backing stream exists, and
// begins the periodic schema-broadcast job.
func (p *Publisher) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return nil
	}

	client, err := natsbus.Connect(p.cfg.Broker)
	if err != nil {
		return err
	}
	p.client = client
	p.ownsConn = true

	prefix := p.cfg.prefix()
	streamName := prefix + "_" + string(p.schema.SourceID())
	if err := client.EnsureStream(streamName, []string{natsbus.SourceWildcard(prefix, p.schema.SourceID())}); err != nil {
		client.Close()
		return err
	}

	sched, err := gocron.NewScheduler()
	if err != nil {
		client.Close()
		return err
	}
	p.scheduler = sched

	job, err := sched.NewJob(
		gocron.DurationJob(p.cfg.interval()),
		gocron.NewTask(p.broadcastSchema),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		client.Close()
		return err
	}
	p.broadcastID = &job

	sched.Start()
	p.running = true
	log.Infof("stream: publisher for %q started, broadcasting schema every %s", p.schema.SourceID(), p.cfg.interval())
	return nil
}

// broadcastSchema is the schema-broadcast task body. Failures are
// logged, rate-limited, and swallowed — the next tick supersedes rather
// than retrying with back-off.
func (p *Publisher) broadcastSchema() {
	p.mu.Lock()
	client := p.client
	prefix := p.cfg.prefix()
	p.mu.Unlock()
	if client == nil {
		return
	}

	source := string(p.schema.SourceID())
	encoded, err := wire.EncodeSchema(p.schema)
	if err != nil {
		metrics.SchemaBroadcastsTotal.WithLabelValues(source, "error").Inc()
		log.Errorf("stream: encode schema for %q failed: %v", p.schema.SourceID(), err)
		return
	}
	subject := natsbus.SchemaSubject(prefix, p.schema.SourceID())
	if err := client.Publish(subject, encoded); err != nil {
		metrics.SchemaBroadcastsTotal.WithLabelValues(source, "error").Inc()
		if p.logLimiter.Allow() {
			log.Warnf("stream: schema broadcast for %q failed, will retry next tick: %v", p.schema.SourceID(), err)
		}
		return
	}
	metrics.SchemaBroadcastsTotal.WithLabelValues(source, "ok").Inc()
}

// Publish transmits one data frame on the publisher's data subject.
func (p *Publisher) Publish(data telemetry.StreamData) error {
	p.mu.Lock()
	running := p.running
	client := p.client
	p.mu.Unlock()

	if !running {
		return ErrNotRunning
	}
	if data.SchemaID != p.schema.SchemaID() {
		return ErrSchemaMismatch
	}

	encoded, err := wire.EncodeData(data, p.schema)
	if err != nil {
		return err
	}
	subject := natsbus.DataSubject(p.cfg.prefix(), p.schema.SourceID())
	if err := client.Publish(subject, encoded); err != nil {
		return err
	}
	metrics.FramesPublishedTotal.WithLabelValues(string(p.schema.SourceID())).Inc()
	return nil
}

// IsRunning reports whether the publisher has been started and not yet
// stopped.
func (p *Publisher) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Stop cancels the schema-broadcast task, flushes in-flight publishes,
// then closes the owned broker connection.
func (p *Publisher) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return nil
	}

	if p.scheduler != nil {
		_ = p.scheduler.Shutdown()
	}

	var flushErr error
	if p.client != nil {
		flushErr = p.client.FlushTimeout(2 * time.Second)
		if p.ownsConn {
			p.client.Close()
		}
	}

	p.running = false
	log.Infof("stream: publisher for %q stopped", p.schema.SourceID())
	return flushErr
}
