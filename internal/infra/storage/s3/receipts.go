package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"voltpay/internal/app/payments"
)

// ReceiptArchive stores capture receipts as JSON objects in an S3-compatible
// bucket, keyed by authorization id.
type ReceiptArchive struct {
	bucket         string
	client         *minio.Client
	logger         *slog.Logger
	bucketInitOnce sync.Once
	bucketInitErr  error
}

// NewReceiptArchive configures the archive using the provided endpoint and credentials.
func NewReceiptArchive(endpoint string, useSSL bool, accessKey, secretKey, bucket string, logger *slog.Logger) (*ReceiptArchive, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, errors.New("s3: endpoint is required")
	}
	if bucket = strings.TrimSpace(bucket); bucket == "" {
		return nil, errors.New("s3: bucket is required")
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(strings.TrimSpace(accessKey), strings.TrimSpace(secretKey), ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("s3: create client: %w", err)
	}
	return &ReceiptArchive{bucket: bucket, client: client, logger: logger}, nil
}

func (a *ReceiptArchive) Store(ctx context.Context, receipt payments.Receipt) error {
	if receipt.AuthorizationID == "" {
		return errors.New("s3: receipt authorization id is required")
	}
	if err := a.ensureBucket(ctx); err != nil {
		return err
	}

	payload, err := json.Marshal(receipt)
	if err != nil {
		return fmt.Errorf("s3: encode receipt: %w", err)
	}
	key := fmt.Sprintf("receipts/%s/%s.json", receipt.CapturedAt.UTC().Format("2006/01/02"), receipt.AuthorizationID)
	_, err = a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(payload), int64(len(payload)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("s3: put receipt: %w", err)
	}
	if a.logger != nil {
		a.logger.Info("capture receipt archived", "bucket", a.bucket, "key", key)
	}
	return nil
}

func (a *ReceiptArchive) ensureBucket(ctx context.Context) error {
	a.bucketInitOnce.Do(func() {
		exists, err := a.client.BucketExists(ctx, a.bucket)
		if err != nil {
			a.bucketInitErr = fmt.Errorf("s3: check bucket: %w", err)
			return
		}
		if exists {
			return
		}
		if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
			a.bucketInitErr = fmt.Errorf("s3: create bucket: %w", err)
		}
	})
	return a.bucketInitErr
}

var _ payments.ReceiptArchive = (*ReceiptArchive)(nil)
