package testutil

import (
	"context"
	"testing"

	"github.com/ilkin0/docguard/internal/storage"
	"github.com/minio/minio-go/v7"
	"github.com/testcontainers/testcontainers-go"
	miniocontainer "github.com/testcontainers/testcontainers-go/modules/minio"
)

type TestContainers struct {
	MinioContainer *miniocontainer.MinioContainer
	MinioClient    *storage.MinIOClient
}

// SetupTestContainers starts a MinIO container. Tests calling it are
// skipped under -short.
func SetupTestContainers(t *testing.T) *TestContainers {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := context.Background()

	minioContainer, err := miniocontainer.Run(ctx,
		"minio/minio:latest",
		miniocontainer.WithUsername("minioadmin"),
		miniocontainer.WithPassword("minioadmin"),
	)
	testcontainers.CleanupContainer(t, minioContainer)
	if err != nil {
		t.Fatalf("Failed to start minio container: %v", err)
	}

	minioEndpoint, err := minioContainer.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("Failed to get minio endpoint: %v", err)
	}

	minioClient, err := storage.NewMinIOClient(storage.Config{
		Endpoint:     minioEndpoint,
		AccessKey:    "minioadmin",
		SecretKey:    "minioadmin",
		BucketPrefix: "docguard-test-",
	})
	if err != nil {
		t.Fatalf("Failed to initialize MinIO client: %v", err)
	}

	return &TestContainers{
		MinioContainer: minioContainer,
		MinioClient:    minioClient,
	}
}

// CleanMinIO empties bucket.
func CleanMinIO(ctx context.Context, minioClient *storage.MinIOClient, bucket string) {
	objectsCh := minioClient.Client.ListObjects(ctx, bucket, minio.ListObjectsOptions{
		Recursive: true,
	})
	for object := range objectsCh {
		if object.Err != nil {
			continue
		}
		minioClient.Client.RemoveObject(ctx, bucket, object.Key, minio.RemoveObjectOptions{})
	}
}
