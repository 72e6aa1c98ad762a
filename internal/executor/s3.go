package executor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/edvin/backupd/internal/backup"
)

// S3API is the subset of the S3 client the executor uses.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3 stores archives in an S3-compatible bucket. Storage paths are
// "s3://bucket/key" locators.
type S3 struct {
	logger   zerolog.Logger
	client   S3API
	archiver archiver
	bucket   string
	prefix   string
}

// S3Config configures the S3 executor.
type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	Prefix    string
	AccessKey string
	SecretKey string
}

// NewS3 creates an S3 executor reading partitions from sourceDir and
// storing archives under cfg.Bucket/cfg.Prefix.
func NewS3(logger zerolog.Logger, cfg S3Config, sourceDir, passphrase string) *S3 {
	client := s3.New(s3.Options{
		BaseEndpoint: aws.String(cfg.Endpoint),
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	})
	return NewS3WithClient(logger, client, cfg.Bucket, cfg.Prefix, sourceDir, passphrase)
}

// NewS3WithClient creates an S3 executor over an existing client.
func NewS3WithClient(logger zerolog.Logger, client S3API, bucket, prefix, sourceDir, passphrase string) *S3 {
	return &S3{
		logger:   logger.With().Str("component", "s3-executor").Logger(),
		client:   client,
		archiver: archiver{sourceDir: sourceDir, passphrase: passphrase},
		bucket:   bucket,
		prefix:   prefix,
	}
}

func (e *S3) Backup(ctx context.Context, id string, tables []string, opts backup.ExecuteOptions) (*backup.BackupResult, error) {
	data, resolved, files, err := e.archiver.pack(ctx, tables, opts)
	if err != nil {
		return nil, fmt.Errorf("pack archive: %w", err)
	}

	key := path.Join(e.prefix, id+".bak")
	_, err = e.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(e.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return nil, fmt.Errorf("upload archive: %w", err)
	}

	e.logger.Debug().Str("backup_id", id).Str("key", key).Int("tables", len(resolved)).Msg("archive uploaded")
	return &backup.BackupResult{
		StoragePath: fmt.Sprintf("s3://%s/%s", e.bucket, key),
		SizeBytes:   int64(len(data)),
		RecordCount: files,
		Checksum:    checksumBytes(data),
	}, nil
}

func (e *S3) Restore(ctx context.Context, storagePath string, tables []string, opts backup.ExecuteOptions) (*backup.RestoreOutcome, error) {
	data, err := e.download(ctx, storagePath)
	if err != nil {
		return nil, err
	}
	restored, files, err := e.archiver.unpack(data, tables, e.archiver.sourceDir, opts)
	if err != nil {
		return nil, fmt.Errorf("unpack archive: %w", err)
	}
	return &backup.RestoreOutcome{RestoredTables: restored, RecordsRestored: files}, nil
}

func (e *S3) Checksum(ctx context.Context, storagePath string) (string, error) {
	data, err := e.download(ctx, storagePath)
	if err != nil {
		return "", err
	}
	return checksumBytes(data), nil
}

func (e *S3) download(ctx context.Context, storagePath string) ([]byte, error) {
	bucket, key, err := parseS3Path(storagePath)
	if err != nil {
		return nil, err
	}
	out, err := e.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("download archive %s: %w", storagePath, err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read archive body: %w", err)
	}
	return data, nil
}

func parseS3Path(storagePath string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(storagePath, "s3://")
	if !ok {
		return "", "", fmt.Errorf("not an s3 locator: %s", storagePath)
	}
	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("malformed s3 locator: %s", storagePath)
	}
	return bucket, key, nil
}
