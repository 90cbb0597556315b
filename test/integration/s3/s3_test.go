//go:build integration

package s3_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	backups3 "github.com/mcolletta/direx/pkg/journal/backup/s3"
)

// setupTestS3 creates an S3 client and test bucket for integration tests.
//
// It connects to Localstack (or another S3-compatible endpoint) and creates
// a test bucket that is removed again by the returned cleanup function.
func setupTestS3(t *testing.T, bucketName string) (*s3.Client, func()) {
	t.Helper()
	ctx := context.Background()

	endpoint := os.Getenv("LOCALSTACK_ENDPOINT")
	if endpoint == "" {
		endpoint = "http://localhost:4566"
	}

	cfg, err := awsConfig.LoadDefaultConfig(ctx,
		awsConfig.WithRegion("us-east-1"),
		awsConfig.WithEndpointResolverWithOptions(aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				return aws.Endpoint{
					URL:               endpoint,
					HostnameImmutable: true,
					Source:            aws.EndpointSourceCustom,
				}, nil
			},
		)),
		awsConfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			"test", "test", "",
		)),
	)
	require.NoError(t, err, "Failed to load AWS config")

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})

	_, err = client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(bucketName),
	})
	require.NoError(t, err, "Failed to create test bucket")

	cleanup := func() {
		out, err := client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket: aws.String(bucketName),
		})
		if err == nil {
			for _, obj := range out.Contents {
				client.DeleteObject(ctx, &s3.DeleteObjectInput{
					Bucket: aws.String(bucketName),
					Key:    obj.Key,
				})
			}
		}
		client.DeleteBucket(ctx, &s3.DeleteBucketInput{
			Bucket: aws.String(bucketName),
		})
	}

	return client, cleanup
}

func TestS3BackupStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	bucket := fmt.Sprintf("direx-test-%d", time.Now().UnixNano())

	client, cleanup := setupTestS3(t, bucket)
	defer cleanup()

	store, err := backups3.New(ctx, backups3.Config{
		Client:    client,
		Bucket:    bucket,
		KeyPrefix: "backups",
	})
	require.NoError(t, err)

	require.NoError(t, store.Save(ctx, "op-1", "docs/report.txt", []byte("numbers")))
	require.NoError(t, store.Save(ctx, "op-1", "docs/notes/todo.md", []byte("- ship")))
	require.NoError(t, store.Save(ctx, "op-2", "other.txt", []byte("x")))

	data, err := store.Open(ctx, "op-1", "docs/report.txt")
	require.NoError(t, err)
	assert.Equal(t, "numbers", string(data))

	rels, err := store.List(ctx, "op-1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"docs/report.txt", "docs/notes/todo.md"}, rels)
}

func TestS3BackupStore_Remove(t *testing.T) {
	ctx := context.Background()
	bucket := fmt.Sprintf("direx-test-%d", time.Now().UnixNano())

	client, cleanup := setupTestS3(t, bucket)
	defer cleanup()

	store, err := backups3.New(ctx, backups3.Config{
		Client: client,
		Bucket: bucket,
	})
	require.NoError(t, err)

	require.NoError(t, store.Save(ctx, "op-1", "a.txt", []byte("a")))
	require.NoError(t, store.Save(ctx, "op-2", "b.txt", []byte("b")))

	require.NoError(t, store.Remove(ctx, "op-1"))
	require.NoError(t, store.Remove(ctx, "op-1")) // idempotent

	rels, err := store.List(ctx, "op-1")
	require.NoError(t, err)
	assert.Empty(t, rels)

	data, err := store.Open(ctx, "op-2", "b.txt")
	require.NoError(t, err)
	assert.Equal(t, "b", string(data))
}

func TestS3BackupStore_MissingBucket(t *testing.T) {
	ctx := context.Background()
	bucket := fmt.Sprintf("direx-test-%d", time.Now().UnixNano())

	client, cleanup := setupTestS3(t, bucket)
	defer cleanup()

	_, err := backups3.New(ctx, backups3.Config{
		Client: client,
		Bucket: "direx-does-not-exist",
	})
	require.Error(t, err)
}
