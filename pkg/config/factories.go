package config

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mitchellh/mapstructure"

	"github.com/mcolletta/direx/internal/logger"
	"github.com/mcolletta/direx/pkg/journal"
	"github.com/mcolletta/direx/pkg/journal/backup"
	backupFs "github.com/mcolletta/direx/pkg/journal/backup/fs"
	backupMemory "github.com/mcolletta/direx/pkg/journal/backup/memory"
	backupS3 "github.com/mcolletta/direx/pkg/journal/backup/s3"
	storeBadger "github.com/mcolletta/direx/pkg/journal/store/badger"
	storeMemory "github.com/mcolletta/direx/pkg/journal/store/memory"
)

// CreateJournalStore creates a journal store based on configuration.
//
// This factory function uses the Type field to determine which store
// implementation to create, then decodes the type-specific configuration
// from the corresponding map and passes it to the store's constructor.
//
// Supported types:
//   - "memory": Uses pkg/journal/store/memory (ephemeral, default)
//   - "badger": Uses pkg/journal/store/badger (persistent)
func CreateJournalStore(ctx context.Context, cfg *JournalStoreConfig) (journal.Store, error) {
	switch cfg.Type {
	case "memory":
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return storeMemory.New(), nil
	case "badger":
		return createBadgerJournalStore(ctx, cfg.Badger)
	default:
		return nil, fmt.Errorf("unknown journal store type: %q (supported: memory, badger)", cfg.Type)
	}
}

// createBadgerJournalStore creates a BadgerDB-backed persistent journal store.
func createBadgerJournalStore(ctx context.Context, options map[string]any) (journal.Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type BadgerJournalStoreOptions struct {
		Dir      string `mapstructure:"dir"`
		InMemory bool   `mapstructure:"in_memory"`
	}

	var storeOpts BadgerJournalStoreOptions
	if err := mapstructure.Decode(options, &storeOpts); err != nil {
		return nil, fmt.Errorf("failed to decode badger journal store options: %w", err)
	}

	if storeOpts.Dir == "" && !storeOpts.InMemory {
		return nil, fmt.Errorf("badger journal store: dir is required")
	}

	store, err := storeBadger.New(storeBadger.Config{
		Dir:      storeOpts.Dir,
		InMemory: storeOpts.InMemory,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create badger journal store: %w", err)
	}

	return store, nil
}

// CreateBackupStore creates a deletion backup store based on configuration.
//
// Supported types:
//   - "filesystem": Uses pkg/journal/backup/fs (local directory, default)
//   - "memory": Uses pkg/journal/backup/memory (ephemeral, tests)
//   - "s3": Uses pkg/journal/backup/s3 (Amazon S3 or compatible storage)
func CreateBackupStore(ctx context.Context, cfg *BackupStoreConfig) (backup.Store, error) {
	switch cfg.Type {
	case "filesystem":
		return createFilesystemBackupStore(ctx, cfg.Filesystem)
	case "memory":
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return backupMemory.New(), nil
	case "s3":
		return createS3BackupStore(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown backup store type: %q (supported: filesystem, memory, s3)", cfg.Type)
	}
}

// createFilesystemBackupStore creates a filesystem-based backup store.
func createFilesystemBackupStore(ctx context.Context, options map[string]any) (backup.Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type FilesystemBackupStoreConfig struct {
		Path string `mapstructure:"path"`
	}

	var storeCfg FilesystemBackupStoreConfig
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode filesystem backup store config: %w", err)
	}

	if storeCfg.Path == "" {
		return nil, fmt.Errorf("filesystem backup store: path is required")
	}

	store, err := backupFs.New(storeCfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem backup store: %w", err)
	}

	return store, nil
}

// createS3BackupStore creates an S3-based backup store.
func createS3BackupStore(ctx context.Context, options map[string]any) (backup.Store, error) {
	type S3BackupStoreConfig struct {
		Region          string `mapstructure:"region"`
		Bucket          string `mapstructure:"bucket"`
		KeyPrefix       string `mapstructure:"key_prefix"`
		Endpoint        string `mapstructure:"endpoint"`
		AccessKeyID     string `mapstructure:"access_key_id"`
		SecretAccessKey string `mapstructure:"secret_access_key"`
		MaxRetries      int    `mapstructure:"max_retries"`
	}

	var storeCfg S3BackupStoreConfig
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode S3 backup store config: %w", err)
	}

	if storeCfg.Bucket == "" {
		return nil, fmt.Errorf("S3 backup store: bucket is required")
	}
	if storeCfg.Region == "" {
		return nil, fmt.Errorf("S3 backup store: region is required")
	}

	var configOptions []func(*awsConfig.LoadOptions) error

	configOptions = append(configOptions, awsConfig.WithRegion(storeCfg.Region))

	// Custom endpoint support (MinIO, Localstack, etc.)
	if storeCfg.Endpoint != "" {
		//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
		customResolver := aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
				return aws.Endpoint{
					URL:               storeCfg.Endpoint,
					HostnameImmutable: true,
					Source:            aws.EndpointSourceCustom,
				}, nil
			},
		)
		//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
		configOptions = append(configOptions, awsConfig.WithEndpointResolverWithOptions(customResolver))
	}

	// Static credentials if provided, otherwise the default credential chain.
	if storeCfg.AccessKeyID != "" && storeCfg.SecretAccessKey != "" {
		credProvider := credentials.NewStaticCredentialsProvider(
			storeCfg.AccessKeyID,
			storeCfg.SecretAccessKey,
			"",
		)
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(credProvider))
	}

	maxRetries := storeCfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 10
	}
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxRetries
		})
	}))

	cfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		// Path-style addressing for MinIO/Localstack compatibility.
		if storeCfg.Endpoint != "" {
			o.UsePathStyle = true
		}
	})

	store, err := backupS3.New(ctx, backupS3.Config{
		Client:    client,
		Bucket:    storeCfg.Bucket,
		KeyPrefix: storeCfg.KeyPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 backup store: %w", err)
	}

	logger.Info("S3 backup store initialized: bucket=%s, region=%s, prefix=%s",
		storeCfg.Bucket, storeCfg.Region, storeCfg.KeyPrefix)

	return store, nil
}
