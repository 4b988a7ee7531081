// Package storage archives produced artifacts in S3-compatible object storage.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/bimate/backend/internal/domain/report"
	infraconfig "github.com/bimate/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// S3ArtifactArchive stores every delivered artifact under a dated key.
// It is compatible with any S3-compatible storage (AWS S3, MinIO, etc.)
type S3ArtifactArchive struct {
	client            *s3.Client
	presignClient     *s3.PresignClient
	bucket            string
	presignExpiration time.Duration
	now               func() time.Time
	newID             func() string
	logger            *zap.Logger
}

// S3ArtifactArchiveOption is a functional option for configuring S3ArtifactArchive
type S3ArtifactArchiveOption func(*S3ArtifactArchive)

// WithLogger sets a custom logger
func WithLogger(logger *zap.Logger) S3ArtifactArchiveOption {
	return func(s *S3ArtifactArchive) {
		s.logger = logger
	}
}

// WithPresignExpiration sets a custom presign expiration duration
func WithPresignExpiration(d time.Duration) S3ArtifactArchiveOption {
	return func(s *S3ArtifactArchive) {
		s.presignExpiration = d
	}
}

// WithClock overrides the clock used for key dates
func WithClock(now func() time.Time) S3ArtifactArchiveOption {
	return func(s *S3ArtifactArchive) {
		s.now = now
	}
}

// NewS3ArtifactArchive creates a new archive from configuration.
func NewS3ArtifactArchive(cfg *infraconfig.StorageConfig, opts ...S3ArtifactArchiveOption) (*S3ArtifactArchive, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}

	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if cfg.AccessKeyID == "" {
		return nil, errors.New("storage access key is required")
	}
	if cfg.SecretKey == "" {
		return nil, errors.New("storage secret key is required")
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "http://localhost:9000"
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}
	if _, err := url.Parse(endpoint); err != nil {
		return nil, fmt.Errorf("invalid storage endpoint: %w", err)
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretKey,
			"",
		)),
		config.WithRequestChecksumCalculation(aws.RequestChecksumCalculationWhenRequired),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		o.BaseEndpoint = aws.String(endpoint)
	})

	archive := &S3ArtifactArchive{
		client:            client,
		presignClient:     s3.NewPresignClient(client),
		bucket:            cfg.Bucket,
		presignExpiration: cfg.PresignExpires,
		now:               time.Now,
		newID:             func() string { return uuid.NewString() },
		logger:            zap.NewNop(),
	}

	for _, opt := range opts {
		opt(archive)
	}

	if archive.presignExpiration == 0 {
		archive.presignExpiration = 15 * time.Minute
	}

	return archive, nil
}

// EnsureBucket creates the bucket if it doesn't exist.
func (s *S3ArtifactArchive) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	s.logger.Info("Creating archive bucket", zap.String("bucket", s.bucket))
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		var alreadyOwned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &alreadyOwned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// Key builds the object key of an artifact: <kind>/<yyyy>/<mm>/<id>-<filename>.
func (s *S3ArtifactArchive) Key(artifact *report.Artifact) string {
	now := s.now()
	name := strings.ReplaceAll(artifact.Filename, "/", "_")
	return path.Join(string(artifact.Kind), now.Format("2006"), now.Format("01"), s.newID()+"-"+name)
}

// Store uploads the artifact and returns its object key.
func (s *S3ArtifactArchive) Store(ctx context.Context, artifact *report.Artifact) (string, error) {
	if artifact == nil || len(artifact.Data) == 0 {
		return "", errors.New("artifact has no content")
	}

	key := s.Key(artifact)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(artifact.Data),
		ContentLength: aws.Int64(int64(len(artifact.Data))),
		ContentType:   aws.String(artifact.ContentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload artifact: %w", err)
	}

	s.logger.Debug("artifact archived",
		zap.String("bucket", s.bucket),
		zap.String("key", key),
		zap.Int("bytes", len(artifact.Data)),
	)
	return key, nil
}

// DownloadURL generates a presigned URL for an archived artifact.
func (s *S3ArtifactArchive) DownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, time.Time, error) {
	if key == "" {
		return "", time.Time{}, errors.New("storage key is required")
	}
	if expiresIn <= 0 {
		expiresIn = s.presignExpiration
	}

	presignReq, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiresIn))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate download URL: %w", err)
	}

	return presignReq.URL, s.now().Add(expiresIn), nil
}

// List returns up to limit artifacts archived under a prefix.
func (s *S3ArtifactArchive) List(ctx context.Context, prefix string, limit int32) ([]ArchivedObject, error) {
	out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(prefix),
		MaxKeys: aws.Int32(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}

	objects := make([]ArchivedObject, 0, len(out.Contents))
	for _, obj := range out.Contents {
		o := ArchivedObject{Key: aws.ToString(obj.Key), Size: aws.ToInt64(obj.Size)}
		if obj.LastModified != nil {
			o.LastModified = *obj.LastModified
		}
		objects = append(objects, o)
	}
	return objects, nil
}

// ArchivedObject describes one stored artifact
type ArchivedObject struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// GetBucket returns the bucket name
func (s *S3ArtifactArchive) GetBucket() string {
	return s.bucket
}
