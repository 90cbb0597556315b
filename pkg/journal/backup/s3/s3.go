// Package s3 implements backup.Store on Amazon S3 or S3-compatible storage.
//
// Backups are stored as objects under <keyPrefix><opID>/<rel>, mirroring the
// filesystem store's layout, so a bucket listing stays human-inspectable.
// Useful when deletion backups must survive the machine itself.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/mcolletta/direx/internal/logger"
)

// deleteBatchSize is the S3 DeleteObjects limit per request.
const deleteBatchSize = 1000

// S3BackupStore stores per-operation backup trees as S3 objects.
//
// Thread Safety: the underlying S3 client is safe for concurrent use.
type S3BackupStore struct {
	client    *s3.Client
	bucket    string
	keyPrefix string
}

// Config contains configuration for the S3 backup store.
type Config struct {
	// Client is the configured S3 client
	Client *s3.Client

	// Bucket is the S3 bucket name (must already exist)
	Bucket string

	// KeyPrefix is an optional prefix for all object keys,
	// e.g. "direx/backups/"
	KeyPrefix string
}

// New creates an S3 backup store and verifies bucket access.
func New(ctx context.Context, cfg Config) (*S3BackupStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if cfg.Client == nil {
		return nil, fmt.Errorf("S3 client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	prefix := cfg.KeyPrefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	_, err := cfg.Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(cfg.Bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to access bucket %s: %w", cfg.Bucket, err)
	}

	logger.Info("S3 backup store initialized: bucket=%s prefix=%q", cfg.Bucket, prefix)

	return &S3BackupStore{
		client:    cfg.Client,
		bucket:    cfg.Bucket,
		keyPrefix: prefix,
	}, nil
}

func (s *S3BackupStore) key(opID, rel string) string {
	return s.keyPrefix + opID + "/" + rel
}

func (s *S3BackupStore) opPrefix(opID string) string {
	return s.keyPrefix + opID + "/"
}

func (s *S3BackupStore) Save(ctx context.Context, opID, rel string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(opID, rel)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("failed to store backup %s/%s: %w", opID, rel, err)
	}
	return nil
}

func (s *S3BackupStore) Open(ctx context.Context, opID, rel string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(opID, rel)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read backup %s/%s: %w", opID, rel, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup body %s/%s: %w", opID, rel, err)
	}
	return data, nil
}

func (s *S3BackupStore) List(ctx context.Context, opID string) ([]string, error) {
	prefix := s.opPrefix(opID)

	var rels []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list backups for %s: %w", opID, err)
		}
		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			rels = append(rels, strings.TrimPrefix(*obj.Key, prefix))
		}
	}

	return rels, nil
}

func (s *S3BackupStore) Remove(ctx context.Context, opID string) error {
	rels, err := s.List(ctx, opID)
	if err != nil {
		return err
	}
	if len(rels) == 0 {
		return nil
	}

	prefix := s.opPrefix(opID)
	for start := 0; start < len(rels); start += deleteBatchSize {
		end := start + deleteBatchSize
		if end > len(rels) {
			end = len(rels)
		}

		objects := make([]types.ObjectIdentifier, 0, end-start)
		for _, rel := range rels[start:end] {
			objects = append(objects, types.ObjectIdentifier{
				Key: aws.String(prefix + rel),
			})
		}

		out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{
				Objects: objects,
				Quiet:   aws.Bool(true),
			},
		})
		if err != nil {
			return fmt.Errorf("failed to delete backups for %s: %w", opID, err)
		}
		for _, derr := range out.Errors {
			logger.Warn("Failed to delete backup object %s: %s",
				aws.ToString(derr.Key), aws.ToString(derr.Message))
		}
	}

	return nil
}
