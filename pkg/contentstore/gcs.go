package contentstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSConfig addresses a Google Cloud Storage bucket. CredentialsFile is
// optional; application default credentials are used when it is empty.
type GCSConfig struct {
	Bucket          string
	Prefix          string
	CredentialsFile string
}

// GCSStore lists and reads units stored as objects under Bucket/Prefix.
type GCSStore struct {
	client *storage.Client
	bucket string
	prefix string
}

var _ Store = (*GCSStore)(nil)

func NewGCSStore(ctx context.Context, cfg GCSConfig) (*GCSStore, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	return NewGCSStoreWithClient(client, cfg.Bucket, cfg.Prefix), nil
}

// NewGCSStoreWithClient creates a store from an existing storage client
func NewGCSStoreWithClient(client *storage.Client, bucket, prefix string) *GCSStore {
	return &GCSStore{
		client: client,
		bucket: bucket,
		prefix: normalizePrefix(prefix),
	}
}

func (s *GCSStore) Identity() string {
	return "gcs:" + s.bucket + "/" + s.prefix
}

func (s *GCSStore) List(ctx context.Context) iter.Seq2[UnitID, error] {
	return func(yield func(UnitID, error) bool) {
		// The object iterator fetches further pages on demand.
		it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{
			Prefix:    s.prefix,
			Delimiter: "/",
		})
		for {
			attrs, err := it.Next()
			if errors.Is(err, iterator.Done) {
				return
			}
			if err != nil {
				yield("", s.mapError("", err))
				return
			}
			// Entries with only Prefix set are sub-folders.
			if attrs.Name == "" || !isTextKey(attrs.Name) {
				continue
			}
			if !yield(UnitID(attrs.Name), nil) {
				return
			}
		}
	}
}

func (s *GCSStore) FetchText(ctx context.Context, id UnitID) (string, error) {
	r, err := s.client.Bucket(s.bucket).Object(string(id)).NewReader(ctx)
	if err != nil {
		return "", s.mapError(id, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return "", s.mapError(id, err)
	}
	return decodeText(s.Identity(), id, data)
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}

func (s *GCSStore) mapError(id UnitID, err error) error {
	return newError(classifyGCSError(id, err), s.Identity(), id, err)
}

func classifyGCSError(id UnitID, err error) error {
	switch {
	case errors.Is(err, storage.ErrBucketNotExist):
		return ErrBackendUnavailable
	case errors.Is(err, storage.ErrObjectNotExist):
		return ErrNotFound
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusForbidden, http.StatusUnauthorized:
			return ErrAccessDenied
		case http.StatusNotFound:
			if id != "" {
				return ErrNotFound
			}
		}
	}
	return ErrBackendUnavailable
}
