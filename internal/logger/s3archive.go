// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package logger

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/hiltest/hilcore/pkg/telemetry"
)

// S3ArchiveConfig configures an S3ArchiveLogger's destination.
type S3ArchiveConfig struct {
	Endpoint     string
	Bucket       string
	AccessKey    string
	SecretKey    string
	Region       string
	UsePathStyle bool
	// Prefix, if set, is prepended to every uploaded object key.
	Prefix string
}

// DirLogger is implemented by loggers whose Start lays out a
// per-session directory tree that can be archived wholesale, such as
// CSVLogger and AvroCheckpointLogger.
type DirLogger interface {
	Logger
	LogDirectory() string
}

// S3ArchiveLogger decorates a DirLogger: every call delegates to the
// wrapped logger, and on Stop it walks the wrapped logger's session
// directory and uploads every file to S3-compatible object storage
// before returning, so HALT/HASS runs that can span days leave their
// logs durably off the test rack.
type S3ArchiveLogger struct {
	inner  DirLogger
	client *s3.Client
	bucket string
	prefix string
}

func NewS3ArchiveLogger(inner DirLogger, cfg S3ArchiveConfig) (*S3ArchiveLogger, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("logger: s3 archive: empty bucket name")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("logger: s3 archive: load AWS config: %w", err)
	}

	opts := func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	}

	return &S3ArchiveLogger{
		inner:  inner,
		client: s3.NewFromConfig(awsCfg, opts),
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

func (s *S3ArchiveLogger) RegisterSchema(topic string, schema telemetry.StreamSchema) error {
	return s.inner.RegisterSchema(topic, schema)
}

func (s *S3ArchiveLogger) Start(tags Tags) error {
	return s.inner.Start(tags)
}

func (s *S3ArchiveLogger) Log(topic string, data telemetry.StreamData) error {
	return s.inner.Log(topic, data)
}

func (s *S3ArchiveLogger) Stop() error {
	if err := s.inner.Stop(); err != nil {
		return err
	}

	dir := s.inner.LogDirectory()
	if dir == "" {
		return nil
	}

	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return fmt.Errorf("logger: s3 archive: relative path for %q: %w", path, err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("logger: s3 archive: read %q: %w", path, err)
		}

		key := filepath.ToSlash(filepath.Join(s.prefix, rel))
		_, err = s.client.PutObject(context.Background(), &s3.PutObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
			Body:   bytes.NewReader(data),
		})
		if err != nil {
			return fmt.Errorf("logger: s3 archive: put object %q: %w", key, err)
		}
		return nil
	})
}

func (s *S3ArchiveLogger) IsRunning() bool {
	return s.inner.IsRunning()
}
