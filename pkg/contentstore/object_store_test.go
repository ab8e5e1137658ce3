package contentstore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/storage"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

// objectPages is the listing a fake bucket serves, one slice per page.
var objectPages = [][]string{
	{"p/1_A_a.txt", "p/notes.md"},
	{"p/1_A_b.txt"},
}

var objectTexts = map[string]string{
	"p/1_A_a.txt": "Erster Abschnitt",
	"p/1_A_b.txt": "Zweiter Abschnitt",
}

// pageIndex maps an opaque page token to the page it names.
func pageIndex(token string) int {
	if token == "" {
		return 0
	}
	n, _ := strconv.Atoi(strings.TrimPrefix(token, "page-"))
	return n
}

func writeObject(w http.ResponseWriter, key string) bool {
	text, ok := objectTexts[key]
	if !ok {
		return false
	}
	w.Header().Set("Content-Type", "text/plain")
	w.Header().Set("Content-Length", strconv.Itoa(len(text)))
	w.Header().Set("Last-Modified", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Format(http.TimeFormat))
	w.Header().Set("ETag", `"etag"`)
	w.Header().Set("X-Goog-Generation", "1")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(text))
	return true
}

func newFakeS3(t *testing.T, bucket string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, "/"+bucket), "/")
		switch {
		case key == "" && r.Method == http.MethodHead:
			w.WriteHeader(http.StatusOK)

		case key == "" && r.URL.Query().Get("list-type") == "2":
			page := pageIndex(r.URL.Query().Get("continuation-token"))
			var b strings.Builder
			b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
			b.WriteString(`<ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">`)
			fmt.Fprintf(&b, "<Name>%s</Name><Prefix>p/</Prefix><Delimiter>/</Delimiter><MaxKeys>1000</MaxKeys>", bucket)
			fmt.Fprintf(&b, "<KeyCount>%d</KeyCount>", len(objectPages[page]))
			if page+1 < len(objectPages) {
				fmt.Fprintf(&b, "<IsTruncated>true</IsTruncated><NextContinuationToken>page-%d</NextContinuationToken>", page+1)
			} else {
				b.WriteString("<IsTruncated>false</IsTruncated>")
			}
			for _, k := range objectPages[page] {
				fmt.Fprintf(&b, "<Contents><Key>%s</Key><LastModified>2024-01-01T00:00:00.000Z</LastModified><ETag>&quot;etag&quot;</ETag><Size>1</Size><StorageClass>STANDARD</StorageClass></Contents>", k)
			}
			b.WriteString("</ListBucketResult>")
			w.Header().Set("Content-Type", "application/xml")
			_, _ = w.Write([]byte(b.String()))

		case r.Method == http.MethodGet && writeObject(w, key):

		default:
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message><Key>%s</Key><BucketName>%s</BucketName></Error>`, key, bucket)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestS3StoreListFollowsContinuationTokens(t *testing.T) {
	srv := newFakeS3(t, "books")
	endpoint, err := url.Parse(srv.URL)
	require.NoError(t, err)

	client, err := minio.New(endpoint.Host, &minio.Options{
		Creds:  credentials.NewStaticV4("key", "secret", ""),
		Secure: false,
		Region: "us-east-1",
	})
	require.NoError(t, err)
	s := NewS3StoreWithClient(client, "books", "p")

	ids, err := collect(t, s)
	require.NoError(t, err)
	assert.Equal(t, []UnitID{"p/1_A_a.txt", "p/1_A_b.txt"}, ids)

	text, err := s.FetchText(context.Background(), "p/1_A_b.txt")
	require.NoError(t, err)
	assert.Equal(t, "Zweiter Abschnitt", text)

	_, err = s.FetchText(context.Background(), "p/1_A_missing.txt")
	assert.ErrorIs(t, err, ErrNotFound)
}

func newFakeGCS(t *testing.T, bucket string) *httptest.Server {
	t.Helper()
	listPath := "/storage/v1/b/" + bucket + "/o"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.EscapedPath()
		switch {
		case path == listPath:
			page := pageIndex(r.URL.Query().Get("pageToken"))
			items := make([]map[string]interface{}, 0, len(objectPages[page]))
			for _, name := range objectPages[page] {
				items = append(items, map[string]interface{}{"kind": "storage#object", "bucket": bucket, "name": name, "size": "1"})
			}
			body := map[string]interface{}{"kind": "storage#objects", "items": items}
			if page == 0 {
				body["prefixes"] = []string{"p/sub/"}
			}
			if page+1 < len(objectPages) {
				body["nextPageToken"] = fmt.Sprintf("page-%d", page+1)
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(body)
			return

		case strings.HasPrefix(path, listPath+"/") && r.URL.Query().Get("alt") == "media":
			name, _ := url.PathUnescape(strings.TrimPrefix(path, listPath+"/"))
			if writeObject(w, name) {
				return
			}

		case strings.HasPrefix(path, "/"+bucket+"/"):
			name, _ := url.PathUnescape(strings.TrimPrefix(path, "/"+bucket+"/"))
			if writeObject(w, name) {
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":404,"message":"No such object"}}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGCSStoreListFollowsPageTokens(t *testing.T) {
	srv := newFakeGCS(t, "books")
	ctx := context.Background()

	client, err := storage.NewClient(ctx,
		option.WithEndpoint(srv.URL+"/storage/v1/"),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)
	s := NewGCSStoreWithClient(client, "books", "p")
	t.Cleanup(func() { _ = s.Close() })

	ids, err := collect(t, s)
	require.NoError(t, err)
	assert.Equal(t, []UnitID{"p/1_A_a.txt", "p/1_A_b.txt"}, ids)

	text, err := s.FetchText(ctx, "p/1_A_a.txt")
	require.NoError(t, err)
	assert.Equal(t, "Erster Abschnitt", text)

	_, err = s.FetchText(ctx, "p/1_A_missing.txt")
	assert.ErrorIs(t, err, ErrNotFound)
}
