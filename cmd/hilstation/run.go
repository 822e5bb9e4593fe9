// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/urfave/cli/v2"

	"github.com/hiltest/hilcore/internal/executor"
	"github.com/hiltest/hilcore/internal/logger"
	"github.com/hiltest/hilcore/pkg/log"
	"github.com/hiltest/hilcore/pkg/monitor"
	"github.com/hiltest/hilcore/pkg/natsbus"
	"github.com/hiltest/hilcore/pkg/runtimeEnv"
	"github.com/hiltest/hilcore/pkg/statebus"
	"github.com/hiltest/hilcore/pkg/stream"
	"github.com/hiltest/hilcore/pkg/telemetry"
	"github.com/hiltest/hilcore/pkg/testdef"
)

// schemaDiscoveryTimeout bounds how long `run` waits for a source's
// first schema broadcast; on timeout every feed is torn down and the
// run command fails.
const schemaDiscoveryTimeout = 10 * time.Second

func runCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "execute a test case against a running station",
		ArgsUsage: " ",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Value: "./station.json", Usage: "path to the station configuration file"},
			&cli.StringFlag{Name: "test-case", Aliases: []string{"t"}, Required: true, Usage: "id of the test case to run, as listed in the station config"},
			&cli.StringFlag{Name: "mode", Value: "functional", Usage: "execution mode: functional, hass, or halt"},
			&cli.StringFlag{Name: "run-id", Usage: "run id to use instead of a generated uuid"},
			&cli.StringFlag{Name: "broker", Usage: "overrides the station config's broker address"},
			&cli.StringFlag{Name: "user", Usage: "drop privileges to this user before running"},
			&cli.StringFlag{Name: "group", Usage: "drop privileges to this group before running"},
		},
		Action: runAction,
	}
}

func runAction(c *cli.Context) error {
	if c.String("user") != "" || c.String("group") != "" {
		if err := runtimeEnv.DropPrivileges(c.String("user"), c.String("group")); err != nil {
			return fmt.Errorf("hilstation: drop privileges: %w", err)
		}
	}

	cfg, err := loadStationConfig(c.String("config"))
	if err != nil {
		return err
	}
	overrideBrokerAddress(&cfg, c.String("broker"))

	tcEntry, ok := cfg.testCase(c.String("test-case"))
	if !ok {
		return fmt.Errorf("hilstation: test case %q not found in station config", c.String("test-case"))
	}

	mode := executor.Mode(c.String("mode"))
	if !slices.Contains(tcEntry.Modes, string(mode)) {
		return fmt.Errorf("hilstation: test case %q does not support mode %q (allowed: %v)", tcEntry.ID, mode, tcEntry.Modes)
	}

	defPath := tcEntry.Definition
	if !filepath.IsAbs(defPath) {
		defPath = filepath.Join(filepath.Dir(c.String("config")), defPath)
	}
	raw, err := os.ReadFile(defPath)
	if err != nil {
		return fmt.Errorf("hilstation: read test definition %q: %w", defPath, err)
	}
	doc, err := testdef.Load(raw)
	if err != nil {
		return fmt.Errorf("hilstation: load test definition %q: %w", defPath, err)
	}

	monitors := make([]*monitor.Monitor, 0, len(doc.Monitors))
	for name, def := range doc.Monitors {
		monitors = append(monitors, monitor.New(def, telemetry.MonitorId(name)))
	}

	sink, err := buildLogger(cfg.Logging)
	if err != nil {
		return err
	}

	statePub, err := statebus.ConnectStatePublisher(cfg.Broker, "")
	if err != nil {
		return fmt.Errorf("hilstation: connect state publisher: %w", err)
	}
	defer statePub.Close()

	feeds, closeFeeds, err := connectFeeds(c.Context, cfg)
	if err != nil {
		return err
	}
	defer closeFeeds()

	exec := executor.New(clockwork.NewRealClock(), statePub, sink, monitors)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go func() {
		if _, ok := <-sigs; ok {
			log.Info("hilstation: signal received, requesting abort")
			_ = exec.Abort()
		}
	}()

	phases := buildPhases(doc, tcEntry.phaseHold())

	runtimeEnv.SystemdNotify(true, fmt.Sprintf("running %s", tcEntry.ID))
	defer runtimeEnv.SystemdNotify(false, "run finished")

	result, err := exec.Run(c.Context, executor.RunConfig{
		RunID:          c.String("run-id"),
		TestName:       tcEntry.Name,
		Description:    tcEntry.Name,
		Mode:           mode,
		Phases:         phases,
		CaseParameters: doc.CaseParameters,
		Tags: logger.Tags{
			logger.TagTestCaseID: tcEntry.ID,
		},
		Feeds: feeds,
	})
	if err != nil {
		return fmt.Errorf("hilstation: run %q: %w", tcEntry.ID, err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("hilstation: encode run result: %w", err)
	}

	if !result.Passed() {
		return cli.Exit("", 1)
	}
	return nil
}

// connectFeeds subscribes to every configured source and returns the
// resulting monitor feeds plus a cleanup func that unsubscribes and
// disconnects all of them. On any failure it tears down what it has
// already opened before returning the error.
func connectFeeds(ctx context.Context, cfg StationConfig) ([]executor.MonitorFeed, func(), error) {
	var subs []*stream.Subscriber
	cleanup := func() {
		for _, s := range subs {
			_ = s.Disconnect()
		}
	}

	feeds := make([]executor.MonitorFeed, 0, len(cfg.Sources))
	for _, sourceName := range cfg.Sources {
		sourceID := telemetry.SourceId(sourceName)

		sub := stream.NewSubscriber(stream.SubscriberConfig{
			Broker:        cfg.Broker,
			SubjectPrefix: cfg.SubjectPrefix,
			DeliveryPolicy: natsbus.DeliverNew,
		})
		subs = append(subs, sub)

		if err := sub.Connect(); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("hilstation: connect subscriber for %q: %w", sourceID, err)
		}
		if err := sub.Subscribe(sourceID); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("hilstation: subscribe to %q: %w", sourceID, err)
		}

		schemaCtx, cancel := context.WithTimeout(ctx, schemaDiscoveryTimeout)
		schema, err := sub.GetSchema(schemaCtx)
		cancel()
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("hilstation: await schema for %q: %w", sourceID, err)
		}

		feeds = append(feeds, executor.MonitorFeed{
			SourceID: sourceID,
			Schema:   schema,
			Frames:   sub.Data(),
		})
	}

	return feeds, cleanup, nil
}
