package contentstore

import (
	"context"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Config addresses an AWS S3 bucket or any S3-compatible service.
type S3Config struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Prefix          string
	UseSSL          bool
}

// S3Store lists and reads units stored as objects under Bucket/Prefix.
type S3Store struct {
	client   *minio.Client
	endpoint string
	bucket   string
	prefix   string
}

var _ Store = (*S3Store)(nil)

func NewS3Store(cfg S3Config) (*S3Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}
	return NewS3StoreWithClient(client, cfg.Bucket, cfg.Prefix), nil
}

// NewS3StoreWithClient creates a store from an existing minio client
func NewS3StoreWithClient(client *minio.Client, bucket, prefix string) *S3Store {
	return &S3Store{
		client:   client,
		endpoint: client.EndpointURL().Host,
		bucket:   bucket,
		prefix:   normalizePrefix(prefix),
	}
}

func (s *S3Store) Identity() string {
	return "s3:" + s.endpoint + "/" + s.bucket + "/" + s.prefix
}

func (s *S3Store) List(ctx context.Context) iter.Seq2[UnitID, error] {
	return func(yield func(UnitID, error) bool) {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err != nil {
			yield("", s.mapError("", err))
			return
		}
		if !exists {
			yield("", newError(ErrBackendUnavailable, s.Identity(), "", fmt.Errorf("bucket %q does not exist", s.bucket)))
			return
		}

		// Cancelling stops minio's listing goroutine when the caller breaks early.
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		// ListObjects follows continuation tokens itself; the channel carries
		// every page.
		objects := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
			Prefix:    s.prefix,
			Recursive: false,
		})
		for obj := range objects {
			if obj.Err != nil {
				yield("", s.mapError("", obj.Err))
				return
			}
			if !isTextKey(obj.Key) {
				continue
			}
			if !yield(UnitID(obj.Key), nil) {
				return
			}
		}
	}
}

func (s *S3Store) FetchText(ctx context.Context, id UnitID) (string, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, string(id), minio.GetObjectOptions{})
	if err != nil {
		return "", s.mapError(id, err)
	}
	defer obj.Close()

	// GetObject is lazy: missing keys and denied reads surface here.
	data, err := io.ReadAll(obj)
	if err != nil {
		return "", s.mapError(id, err)
	}
	return decodeText(s.Identity(), id, data)
}

func (s *S3Store) mapError(id UnitID, err error) error {
	return newError(classifyS3Error(id, err), s.Identity(), id, err)
}

func classifyS3Error(id UnitID, err error) error {
	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchBucket":
		return ErrBackendUnavailable
	case "NoSuchKey":
		return ErrNotFound
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch", "AllAccessDisabled":
		return ErrAccessDenied
	}
	switch resp.StatusCode {
	case http.StatusForbidden, http.StatusUnauthorized:
		return ErrAccessDenied
	case http.StatusNotFound:
		if id != "" {
			return ErrNotFound
		}
	}
	return ErrBackendUnavailable
}

// normalizePrefix turns "books" into "books/" so listing stays inside the
// folder; an empty prefix lists the bucket root.
func normalizePrefix(prefix string) string {
	prefix = strings.TrimLeft(prefix, "/")
	if prefix == "" || strings.HasSuffix(prefix, "/") {
		return prefix
	}
	return prefix + "/"
}
