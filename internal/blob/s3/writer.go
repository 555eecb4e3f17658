package s3blob

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/misionbonos/bondgame/internal/domain"
)

// minPartSize is the S3 minimum multipart part size (5 MiB).
const minPartSize int64 = 5 << 20

// Writer implements domain.BlobWriter on the archive bucket.
type Writer struct {
	client *s3.Client
	bucket string
}

// NewWriter creates a Writer bound to the client's configured bucket.
func NewWriter(c *Client) *Writer {
	return &Writer{client: c.S3(), bucket: c.Bucket()}
}

// Put uploads data in a single PutObject call. Game snapshots run a few
// hundred kilobytes at most, so one shot always suffices.
func (w *Writer) Put(ctx context.Context, path string, data io.Reader, contentType string) error {
	_, err := w.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(w.bucket),
		Key:         aws.String(path),
		Body:        data,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("s3blob: put %s: %w", path, err)
	}
	return nil
}

// PutMultipart uploads oversized payloads, such as bulk audit exports,
// through the concurrent upload manager. Part sizes below the S3 minimum
// are clamped.
func (w *Writer) PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error {
	if partSize < minPartSize {
		partSize = minPartSize
	}
	up := manager.NewUploader(w.client, func(u *manager.Uploader) { u.PartSize = partSize })

	_, err := up.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(w.bucket),
		Key:    aws.String(path),
		Body:   data,
	})
	if err != nil {
		return fmt.Errorf("s3blob: multipart put %s: %w", path, err)
	}
	return nil
}

var _ domain.BlobWriter = (*Writer)(nil)
