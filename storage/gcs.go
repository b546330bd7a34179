package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"cloud.google.com/go/storage"
	"github.com/codeGROOVE-dev/retry"
	"google.golang.org/api/option"
)

// GCS stores values as objects in a Cloud Storage bucket.
type GCS struct {
	client   *storage.Client
	logger   *slog.Logger
	bucket   string
	attempts uint
}

// NewGCSClient creates a Cloud Storage client. Explicit credentials JSON is
// used when provided, otherwise Application Default Credentials.
func NewGCSClient(ctx context.Context, credentialsJSON string) (*storage.Client, error) {
	var opts []option.ClientOption
	if credentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credentialsJSON)))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return client, nil
}

// NewGCS creates a bucket-backed store. attempts bounds how many times each
// read or write is tried.
func NewGCS(client *storage.Client, bucket string, attempts uint, logger *slog.Logger) *GCS {
	return &GCS{
		client:   client,
		logger:   logger,
		bucket:   bucket,
		attempts: attempts,
	}
}

// Get reads the object stored under key.
func (g *GCS) Get(ctx context.Context, key string) ([]byte, error) {
	name := Key(key)
	if name == "" {
		return nil, errors.New("invalid key format")
	}

	var data []byte
	err := retry.Do(
		func() error {
			r, openErr := g.client.Bucket(g.bucket).Object(name).NewReader(ctx)
			if openErr != nil {
				if errors.Is(openErr, storage.ErrObjectNotExist) {
					return ErrNotFound
				}
				return fmt.Errorf("open storage reader: %w", openErr)
			}
			defer func() {
				if closeErr := r.Close(); closeErr != nil {
					g.logger.Warn("Failed to close storage reader", "error", closeErr)
				}
			}()

			var readErr error
			data, readErr = io.ReadAll(r)
			if readErr != nil {
				return fmt.Errorf("read from storage: %w", readErr)
			}
			return nil
		},
		retryOptions(ctx, g.attempts, func(n uint, retryErr error) {
			g.logger.Info("Retrying load operation after error", "attempt", n, "key", name, "error", retryErr)
		})...,
	)
	if err != nil {
		if IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	return data, nil
}

// Put replaces the object stored under key.
func (g *GCS) Put(ctx context.Context, key string, value []byte) error {
	name := Key(key)
	if name == "" {
		return errors.New("invalid key format")
	}

	err := retry.Do(
		func() error {
			w := g.client.Bucket(g.bucket).Object(name).NewWriter(ctx)
			w.ContentType = "application/json"
			if _, writeErr := w.Write(value); writeErr != nil {
				if closeErr := w.Close(); closeErr != nil {
					g.logger.Warn("Failed to close writer after error", "error", closeErr)
				}
				return fmt.Errorf("write to storage: %w", writeErr)
			}
			if closeErr := w.Close(); closeErr != nil {
				return fmt.Errorf("close storage writer: %w", closeErr)
			}
			return nil
		},
		retryOptions(ctx, g.attempts, func(n uint, retryErr error) {
			g.logger.Info("Retrying save operation after error", "attempt", n, "key", name, "error", retryErr)
		})...,
	)
	if err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}

	g.logger.Info("State saved", "bucket", g.bucket, "key", name, "bytes", len(value))
	return nil
}
