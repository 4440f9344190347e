// Package storage archives scanned bill images in Google Cloud Storage.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/option"
)

const uploadTimeout = 2 * time.Minute

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/heic": ".heic",
}

// BillArchive writes bill images to a bucket. It uses Application Default
// Credentials unless a service account key file is given.
type BillArchive struct {
	client *gcs.Client
	bucket string
	now    func() time.Time
}

func NewBillArchive(ctx context.Context, bucket, credentialsFile string) (*BillArchive, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &BillArchive{client: client, bucket: bucket, now: time.Now}, nil
}

// Archive uploads the image and returns its gs:// URI.
func (a *BillArchive) Archive(ctx context.Context, accountID, mimeType string, data []byte) (string, error) {
	objectName := ObjectName(accountID, mimeType, a.now(), uuid.NewString())

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := a.client.Bucket(a.bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = mimeType
	w.Metadata = map[string]string{"account_id": accountID}

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("copy bill to GCS writer: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize upload: %w", err)
	}
	return "gs://" + a.bucket + "/" + objectName, nil
}

func (a *BillArchive) Close() error {
	return a.client.Close()
}

// ObjectName lays bills out as bills/<account>/<yyyy>/<mm>/<id><ext>.
func ObjectName(accountID, mimeType string, at time.Time, id string) string {
	ext, ok := extensions[strings.ToLower(mimeType)]
	if !ok {
		ext = ".bin"
	}
	return path.Join("bills", accountID, at.UTC().Format("2006"), at.UTC().Format("01"), id+ext)
}
