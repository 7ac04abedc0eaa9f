package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/ethpandaops/qahub/pkg/api/store"
	"github.com/ethpandaops/qahub/pkg/config"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const drainTimeout = 10 * time.Second

// objectPutter is the subset of the S3 client used for archiving.
type objectPutter interface {
	PutObject(
		ctx context.Context,
		params *s3.PutObjectInput,
		optFns ...func(*s3.Options),
	) (*s3.PutObjectOutput, error)
}

// s3Archiver implements Archiver for S3-compatible storage.
type s3Archiver struct {
	log    logrus.FieldLogger
	cfg    *config.S3ArchiveConfig
	client objectPutter
	queue  chan store.AutomationReport
}

// Ensure interface compliance.
var _ Archiver = (*s3Archiver)(nil)

// NewS3Archiver creates a new S3 archiver from the given configuration.
func NewS3Archiver(
	log logrus.FieldLogger,
	cfg *config.S3ArchiveConfig,
) Archiver {
	return newS3Archiver(log, cfg, newS3Client(cfg))
}

func newS3Archiver(
	log logrus.FieldLogger,
	cfg *config.S3ArchiveConfig,
	client objectPutter,
) *s3Archiver {
	size := cfg.QueueSize
	if size <= 0 {
		size = config.DefaultArchiveQueueSize
	}

	return &s3Archiver{
		log:    log.WithField("component", "s3-archiver"),
		cfg:    cfg,
		client: client,
		queue:  make(chan store.AutomationReport, size),
	}
}

// newS3Client builds an S3 client with static credentials and optional
// custom endpoint.
func newS3Client(cfg *config.S3ArchiveConfig) *s3.Client {
	return s3.New(s3.Options{}, func(o *s3.Options) {
		if cfg.Region != "" {
			o.Region = cfg.Region
		} else {
			o.Region = "us-east-1"
		}

		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
		}

		if cfg.ForcePathStyle {
			o.UsePathStyle = true
		}

		if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
			o.Credentials = credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID, cfg.SecretAccessKey, "",
			)
		}
	})
}

// Preflight verifies S3 connectivity by writing a small test object.
func (a *s3Archiver) Preflight(ctx context.Context) error {
	content := fmt.Sprintf("qahub write test: %s", time.Now().UTC().Format(time.RFC3339))

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.cfg.Bucket),
		Key:         aws.String(a.prefix() + "/.qahub-write-test"),
		Body:        strings.NewReader(content),
		ContentType: aws.String("text/plain"),
	})
	if err != nil {
		return fmt.Errorf("writing test object to s3://%s: %w", a.cfg.Bucket, err)
	}

	return nil
}

// Enqueue copies the report onto the archive queue.
func (a *s3Archiver) Enqueue(report *store.AutomationReport) bool {
	select {
	case a.queue <- *report:
		return true
	default:
		a.log.WithField("report_id", report.ID).
			Warn("Archive queue full, dropping report")

		return false
	}
}

// Run uploads queued reports until ctx is cancelled.
func (a *s3Archiver) Run(ctx context.Context) error {
	for {
		select {
		case report := <-a.queue:
			a.archive(ctx, &report)
		case <-ctx.Done():
			a.drain()

			return nil
		}
	}
}

// drain uploads reports still queued at shutdown within drainTimeout.
func (a *s3Archiver) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	for {
		select {
		case report := <-a.queue:
			a.archive(ctx, &report)
		default:
			return
		}
	}
}

// archive uploads a single report. Failures are logged and not retried.
func (a *s3Archiver) archive(ctx context.Context, report *store.AutomationReport) {
	key := a.objectKey(report, uuid.NewString())

	if err := a.put(ctx, key, report); err != nil {
		a.log.WithError(err).
			WithField("report_id", report.ID).
			WithField("key", key).
			Warn("Failed to archive report")

		return
	}

	a.log.WithFields(logrus.Fields{
		"report_id": report.ID,
		"bucket":    a.cfg.Bucket,
		"key":       key,
	}).Debug("Archived report")
}

func (a *s3Archiver) put(
	ctx context.Context, key string, report *store.AutomationReport,
) error {
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("PutObject: %w", err)
	}

	return nil
}

// objectKey builds <prefix>/<suite>/<id>_<nonce>.json. The nonce keeps
// keys unique when several databases archive into the same bucket.
func (a *s3Archiver) objectKey(report *store.AutomationReport, nonce string) string {
	return fmt.Sprintf("%s/%s/%d_%s.json",
		a.prefix(), sanitizeSegment(report.SuiteName), report.ID, nonce)
}

// prefix returns the configured key prefix without a trailing slash.
func (a *s3Archiver) prefix() string {
	prefix := a.cfg.Prefix
	if prefix == "" {
		prefix = config.DefaultArchivePrefix
	}

	return strings.TrimRight(prefix, "/")
}

// sanitizeSegment makes s safe to use as a single key path segment.
func sanitizeSegment(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "unnamed"
	}

	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, s)
}
