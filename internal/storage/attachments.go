package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// AttachmentIssuer issues time-limited signed URLs for todo attachments.
type AttachmentIssuer interface {
	UploadURL(ctx context.Context, id string) (string, error)
	DownloadURLIfExists(ctx context.Context, id string) (string, error)
}

// AttachmentStore issues signed URLs against a single S3 bucket. Objects are
// keyed by todo id: "<id>.png". URL lifetime is enforced by S3, not here.
type AttachmentStore struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
	expiry  time.Duration
}

func NewAttachmentStore(client *s3.Client, bucket string, expiry time.Duration) *AttachmentStore {
	if expiry <= 0 {
		expiry = 5 * time.Minute
	}
	return &AttachmentStore{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  bucket,
		expiry:  expiry,
	}
}

func attachmentKey(id string) string { return id + ".png" }

// UploadURL returns a presigned PUT URL for the todo's attachment key. The
// key does not have to exist yet.
func (s *AttachmentStore) UploadURL(ctx context.Context, id string) (string, error) {
	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(attachmentKey(id)),
	}, s3.WithPresignExpires(s.expiry))
	if err != nil {
		return "", fmt.Errorf("presign put: %w", err)
	}
	return req.URL, nil
}

// DownloadURLIfExists returns a presigned GET URL when the attachment object
// is present, and "" when it is not. Transient HeadObject failures are logged
// and reported as absent: a todo without a reachable attachment is normal,
// not exceptional.
func (s *AttachmentStore) DownloadURLIfExists(ctx context.Context, id string) (string, error) {
	key := attachmentKey(id)
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nf *types.NotFound
		if !errors.As(err, &nf) {
			log.Printf("attachments: head %s/%s: %v", s.bucket, key, err)
		}
		return "", nil
	}
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.expiry))
	if err != nil {
		return "", fmt.Errorf("presign get: %w", err)
	}
	return req.URL, nil
}
