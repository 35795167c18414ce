package testutil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/localstack"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	localStackImage  = "localstack/localstack:latest"
	localStackRegion = "us-east-1"

	// LocalStackAccessKey and LocalStackSecretKey are accepted by LocalStack
	// for every request.
	LocalStackAccessKey = "test"
	LocalStackSecretKey = "test"
)

// LocalStack is a running LocalStack container with a fixture client.
type LocalStack struct {
	container *localstack.LocalStackContainer
	endpoint  string

	// Fixtures is an SDK client used to arrange and inspect test state
	Fixtures *s3.Client
}

// StartLocalStack starts a container and registers its termination with t.
// It skips the test in short mode.
func StartLocalStack(t *testing.T) *LocalStack {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	container, err := localstack.Run(ctx,
		localStackImage,
		testcontainers.WithWaitStrategy(
			wait.ForHTTP("/_localstack/health").
				WithPort("4566").
				WithStartupTimeout(2*time.Minute),
		),
	)
	if err != nil {
		t.Fatalf("failed to start LocalStack container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate LocalStack container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "4566")
	if err != nil {
		t.Fatalf("failed to get container port: %v", err)
	}
	endpoint := fmt.Sprintf("http://%s:%s", host, port.Port())

	fixtures := s3.New(s3.Options{
		Region:       localStackRegion,
		Credentials:  credentials.NewStaticCredentialsProvider(LocalStackAccessKey, LocalStackSecretKey, ""),
		BaseEndpoint: aws.String(endpoint),
		UsePathStyle: true,
	})

	return &LocalStack{container: container, endpoint: endpoint, Fixtures: fixtures}
}

// Endpoint returns the LocalStack endpoint URL.
func (l *LocalStack) Endpoint() string {
	return l.endpoint
}

// Region returns the region LocalStack serves.
func (l *LocalStack) Region() string {
	return localStackRegion
}

// CreateBucket creates a uniquely named bucket and removes it with its
// contents when the test ends.
func (l *LocalStack) CreateBucket(t *testing.T, prefix string) string {
	t.Helper()

	name := strings.ToLower(prefix + "-" + uuid.NewString())
	if len(name) > 63 {
		name = strings.TrimRight(name[:63], "-")
	}

	ctx := context.Background()
	if _, err := l.Fixtures.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(name)}); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}
	t.Cleanup(func() {
		if err := l.emptyAndDelete(context.Background(), name); err != nil {
			t.Logf("failed to clean up bucket %s: %v", name, err)
		}
	})
	return name
}

// PutObject stores body under key.
func (l *LocalStack) PutObject(t *testing.T, bucket, key string, body []byte) {
	t.Helper()

	_, err := l.Fixtures.PutObject(context.Background(), &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(body),
	})
	if err != nil {
		t.Fatalf("failed to put object %s/%s: %v", bucket, key, err)
	}
}

// ObjectExists reports whether key is present in bucket.
func (l *LocalStack) ObjectExists(t *testing.T, bucket, key string) bool {
	t.Helper()

	_, err := l.Fixtures.HeadObject(context.Background(), &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return false
	}
	t.Fatalf("failed to head object %s/%s: %v", bucket, key, err)
	return false
}

func (l *LocalStack) emptyAndDelete(ctx context.Context, bucket string) error {
	paginator := s3.NewListObjectsV2Paginator(l.Fixtures, &s3.ListObjectsV2Input{Bucket: aws.String(bucket)})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("failed to list objects: %w", err)
		}
		if len(page.Contents) == 0 {
			continue
		}

		objects := make([]types.ObjectIdentifier, 0, len(page.Contents))
		for _, obj := range page.Contents {
			objects = append(objects, types.ObjectIdentifier{Key: obj.Key})
		}
		if _, err := l.Fixtures.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(bucket),
			Delete: &types.Delete{Objects: objects},
		}); err != nil {
			return fmt.Errorf("failed to delete objects: %w", err)
		}
	}

	if _, err := l.Fixtures.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: aws.String(bucket)}); err != nil {
		return fmt.Errorf("failed to delete bucket: %w", err)
	}
	return nil
}
