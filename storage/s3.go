package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/ruteri/spe-sentiment-envelope/interfaces"
)

// S3Config configures an S3Source.
type S3Config struct {
	Bucket   string
	Key      string
	Region   string
	Endpoint string // optional, for S3-compatible services

	// Static credentials. When empty the default AWS credential chain is used.
	AccessKey string
	SecretKey string

	// Anonymous disables request signing, for public buckets.
	Anonymous bool
}

// S3Source reads a trust config object from Amazon S3 or a compatible service.
type S3Source struct {
	client      *s3.S3
	bucket      string
	key         string
	log         *slog.Logger
	locationURI string
}

// NewS3Source creates an S3 source.
func NewS3Source(cfg S3Config, log *slog.Logger) (*S3Source, error) {
	if cfg.Bucket == "" || cfg.Key == "" {
		return nil, fmt.Errorf("%w: s3 source requires bucket and key", interfaces.ErrInvalidLocationURI)
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	uri := fmt.Sprintf("s3://%s/%s?region=%s", cfg.Bucket, cfg.Key, cfg.Region)
	if cfg.Endpoint != "" {
		uri += fmt.Sprintf("&endpoint=%s", cfg.Endpoint)
	}

	awsCfg := aws.Config{
		Region: aws.String(cfg.Region),
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}
	switch {
	case cfg.Anonymous:
		awsCfg.Credentials = credentials.AnonymousCredentials
	case cfg.AccessKey != "" && cfg.SecretKey != "":
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	}

	sess, err := session.NewSession(&awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &S3Source{
		client:      s3.New(sess),
		bucket:      cfg.Bucket,
		key:         strings.TrimPrefix(cfg.Key, "/"),
		log:         log,
		locationURI: uri,
	}, nil
}

// Fetch retrieves the object. Returns ErrContentNotFound if it doesn't exist.
func (s *S3Source) Fetch(ctx context.Context) ([]byte, error) {
	start := time.Now()

	result, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		var aerr awserr.RequestFailure
		if errors.As(err, &aerr) && aerr.StatusCode() == 404 {
			s.log.Debug("Trust config not found in S3",
				slog.String("bucket", s.bucket),
				slog.String("key", s.key))
			return nil, interfaces.ErrContentNotFound
		}

		s.log.Error("Failed to get object from S3",
			slog.String("bucket", s.bucket),
			slog.String("key", s.key),
			"err", err,
			slog.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object body: %w", err)
	}

	s.log.Debug("Fetched trust config from S3",
		slog.String("bucket", s.bucket),
		slog.String("key", s.key),
		slog.Int("size", len(data)),
		slog.Duration("duration", time.Since(start)))
	return data, nil
}

// Store uploads the object with server-side encryption.
func (s *S3Source) Store(ctx context.Context, data []byte) (string, error) {
	_, err := s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:               aws.String(s.bucket),
		Key:                  aws.String(s.key),
		Body:                 bytes.NewReader(data),
		ContentType:          aws.String("application/json"),
		ServerSideEncryption: aws.String(s3.ServerSideEncryptionAes256),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}
	return s.locationURI, nil
}

// Available checks that the bucket is reachable.
func (s *S3Source) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := s.client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		s.log.Debug("S3 bucket unavailable", slog.String("bucket", s.bucket), "err", err)
		return false
	}
	return true
}

func (s *S3Source) Name() string {
	return fmt.Sprintf("s3-%s", s.bucket)
}

func (s *S3Source) LocationURI() string {
	return s.locationURI
}
