package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ilkin0/docguard/internal/utils"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"golang.org/x/sync/errgroup"
)

type Config struct {
	Endpoint     string
	AccessKey    string
	SecretKey    string
	UseSSL       bool
	BucketPrefix string
}

func LoadConfig() Config {
	return Config{
		Endpoint:     utils.GetEnv("MINIO_ENDPOINT", ""),
		AccessKey:    utils.GetEnv("MINIO_ACCESS_KEY", ""),
		SecretKey:    utils.GetEnv("MINIO_SECRET_KEY", ""),
		UseSSL:       utils.GetEnvBool("MINIO_USE_SSL", false),
		BucketPrefix: utils.GetEnv("MINIO_BUCKET_PREFIX", ""),
	}
}

// Enabled reports whether object storage is configured for this deployment.
func (c Config) Enabled() bool {
	return c.Endpoint != ""
}

// Object is a document ready to be written.
type Object struct {
	Bucket      string
	Key         string
	Body        io.Reader
	Size        int64
	ContentType string
	Metadata    map[string]string
}

type Stored struct {
	Bucket string
	Key    string
	Size   int64
	ETag   string
}

type MinIOClient struct {
	Client *minio.Client
	prefix string
}

func NewMinIOClient(cfg Config) (*MinIOClient, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &MinIOClient{
		Client: client,
		prefix: cfg.BucketPrefix,
	}, nil
}

// BucketFor maps a destination to its bucket name.
func (m *MinIOClient) BucketFor(destination string) string {
	return strings.ToLower(m.prefix + destination)
}

// EnsureBuckets creates the bucket of every destination that does not exist yet.
func (m *MinIOClient) EnsureBuckets(ctx context.Context, destinations []string) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, dest := range destinations {
		bucket := m.BucketFor(dest)
		g.Go(func() error {
			return m.ensureBucket(ctx, bucket)
		})
	}

	return g.Wait()
}

func (m *MinIOClient) ensureBucket(ctx context.Context, bucket string) error {
	exists, err := m.Client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", bucket, err)
	}
	if exists {
		return nil
	}

	if err := m.Client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		// Another instance may have won the race.
		if resp := minio.ToErrorResponse(err); resp.Code == "BucketAlreadyOwnedByYou" {
			return nil
		}
		return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
	}

	slog.Info("minio bucket created successfully",
		slog.String("bucket_name", bucket),
	)
	return nil
}

func (m *MinIOClient) Put(ctx context.Context, obj Object) (Stored, error) {
	info, err := m.Client.PutObject(ctx, obj.Bucket, obj.Key, obj.Body, obj.Size, minio.PutObjectOptions{
		ContentType:  obj.ContentType,
		UserMetadata: obj.Metadata,
	})
	if err != nil {
		return Stored{}, fmt.Errorf("failed to upload document to MinIO: %w", err)
	}

	return Stored{
		Bucket: info.Bucket,
		Key:    info.Key,
		Size:   info.Size,
		ETag:   info.ETag,
	}, nil
}
