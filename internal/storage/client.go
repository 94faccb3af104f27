package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sirupsen/logrus"

	"github.com/lxplabs/recflow/internal/config"
)

const (
	maxRetries = 3
	retryDelay = 2 * time.Second
)

// ErrStorage marks object-store failures after retries are exhausted.
var ErrStorage = errors.New("storage error")

// Client talks to the S3-compatible object store (Cloudflare R2 in
// production) that holds input datasets and result files.
type Client struct {
	bucket string
	mc     *minio.Client
	logger *logrus.Logger
}

func New(cfg config.StorageConfig, logger *logrus.Logger) (*Client, error) {
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}

	return &Client{
		bucket: cfg.Bucket,
		mc:     mc,
		logger: logger,
	}, nil
}

// Download fetches an object to a local path, retrying up to maxRetries
// with a fixed delay.
func (c *Client) Download(ctx context.Context, key, localPath string) error {
	c.logger.WithFields(logrus.Fields{
		"bucket": c.bucket,
		"key":    key,
		"local":  localPath,
	}).Info("Downloading object")

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if err := c.mc.FGetObject(ctx, c.bucket, key, localPath, minio.GetObjectOptions{}); err != nil {
			lastErr = err
			c.logger.WithError(err).WithFields(logrus.Fields{
				"attempt": attempt,
				"key":     key,
			}).Warn("Download attempt failed")
			if attempt < maxRetries {
				select {
				case <-time.After(retryDelay):
				case <-ctx.Done():
					return fmt.Errorf("%w: download cancelled: %v", ErrStorage, ctx.Err())
				}
			}
			continue
		}
		return nil
	}
	return fmt.Errorf("%w: download of %s failed after %d attempts: %v", ErrStorage, key, maxRetries, lastErr)
}

// Upload stores a local file under the given object key, retrying up to
// maxRetries with a fixed delay.
func (c *Client) Upload(ctx context.Context, localPath, key string) error {
	c.logger.WithFields(logrus.Fields{
		"bucket": c.bucket,
		"key":    key,
		"local":  localPath,
	}).Info("Uploading object")

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if _, err := c.mc.FPutObject(ctx, c.bucket, key, localPath, minio.PutObjectOptions{
			ContentType: "application/octet-stream",
		}); err != nil {
			lastErr = err
			c.logger.WithError(err).WithFields(logrus.Fields{
				"attempt": attempt,
				"key":     key,
			}).Warn("Upload attempt failed")
			if attempt < maxRetries {
				select {
				case <-time.After(retryDelay):
				case <-ctx.Done():
					return fmt.Errorf("%w: upload cancelled: %v", ErrStorage, ctx.Err())
				}
			}
			continue
		}
		return nil
	}
	return fmt.Errorf("%w: upload of %s failed after %d attempts: %v", ErrStorage, key, maxRetries, lastErr)
}
