package cloud

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/hashicorp/go-multierror"

	"haruki-const-decrypter/config"
	harukiLogger "haruki-const-decrypter/utils/logger"
)

var logger = harukiLogger.NewLogger("HarukiCloudStorageUploader", "INFO", nil)

type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Uploader writes files into one S3 compatible bucket.
type Uploader struct {
	client putObjectAPI
	bucket string
	prefix string
}

func NewS3Uploader(storage config.RemoteStorageConfig) *Uploader {
	opts := s3.Options{
		Region:       storage.Region,
		UsePathStyle: storage.PathStyle,
	}
	if storage.Endpoint != "" {
		opts.BaseEndpoint = aws.String(storage.Endpoint)
	}
	if storage.AccessKey != "" {
		opts.Credentials = credentials.NewStaticCredentialsProvider(storage.AccessKey, storage.SecretKey, "")
	}
	return &Uploader{client: s3.New(opts), bucket: storage.Bucket, prefix: storage.Prefix}
}

func contentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return "application/json"
	case ".msgpack":
		return "application/msgpack"
	case ".yaml", ".yml":
		return "application/yaml"
	default:
		return "application/octet-stream"
	}
}

// Key maps a file below baseDir to its object key.
func (u *Uploader) Key(baseDir, filePath string) (string, error) {
	rel, err := filepath.Rel(baseDir, filePath)
	if err != nil {
		return "", err
	}
	return path.Join(u.prefix, filepath.ToSlash(rel)), nil
}

func (u *Uploader) Upload(ctx context.Context, key string, data []byte) error {
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType(key)),
	})
	return err
}

// UploadToStorage uploads files with at most concurrency uploads in flight
// and reports every failed file.
func (u *Uploader) UploadToStorage(ctx context.Context, files []string, baseDir string, concurrency int, removeLocalAfterUpload bool) error {
	if concurrency <= 0 {
		concurrency = 1
	}
	semaphore := make(chan struct{}, concurrency)
	errChan := make(chan error, len(files))
	var wg sync.WaitGroup
	uploadFile := func(filePath string) {
		defer wg.Done()
		semaphore <- struct{}{}
		defer func() { <-semaphore }()
		key, err := u.Key(baseDir, filePath)
		if err != nil {
			errChan <- fmt.Errorf("failed to get relative path for %s: %w", filePath, err)
			return
		}
		data, err := os.ReadFile(filePath)
		if err != nil {
			errChan <- err
			return
		}
		logger.Debugf("Uploading %s to s3://%s/%s", filePath, u.bucket, key)
		if err := u.Upload(ctx, key, data); err != nil {
			logger.Errorf("Failed to upload %s to s3://%s/%s", filePath, u.bucket, key)
			errChan <- fmt.Errorf("failed to upload %s to s3://%s/%s: %w", filePath, u.bucket, key, err)
			return
		}
		logger.Infof("Successfully uploaded %s to s3://%s/%s", filePath, u.bucket, key)
		if removeLocalAfterUpload {
			if err := os.Remove(filePath); err != nil {
				logger.Warnf("Failed to delete local file %s after upload: %v", filePath, err)
				errChan <- fmt.Errorf("uploaded but failed to delete local file %s: %w", filePath, err)
			}
		}
	}
	for _, filePath := range files {
		wg.Add(1)
		go uploadFile(filePath)
	}
	wg.Wait()
	close(errChan)
	var result *multierror.Error
	for err := range errChan {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

// UploadToAllStorages uploads files to every configured S3 storage.
func UploadToAllStorages(ctx context.Context, files []string, baseDir string, removeLocal bool) error {
	return uploadToAll(ctx, config.Cfg.RemoteStorages, files, baseDir, config.Cfg.ConcurrentUploads, removeLocal, NewS3Uploader)
}

func uploadToAll(
	ctx context.Context,
	storages []config.RemoteStorageConfig,
	files []string,
	baseDir string,
	concurrency int,
	removeLocal bool,
	newUploader func(config.RemoteStorageConfig) *Uploader,
) error {
	if len(storages) == 0 {
		logger.Infof("No remote storages configured, skipping upload")
		return nil
	}
	for i, storage := range storages {
		if storage.Type != "s3" {
			return fmt.Errorf("unsupported remote storage type %q", storage.Type)
		}
		// local files may only go away after the last storage has them
		remove := removeLocal && i == len(storages)-1
		logger.Infof("Uploading to remote storage: s3://%s/%s", storage.Bucket, storage.Prefix)
		if err := newUploader(storage).UploadToStorage(ctx, files, baseDir, concurrency, remove); err != nil {
			return fmt.Errorf("failed to upload to storage %s: %w", storage.Bucket, err)
		}
	}
	logger.Infof("Successfully uploaded to all configured remote storages")
	return nil
}
