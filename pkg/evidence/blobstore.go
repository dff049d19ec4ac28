package evidence

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"

	"cloud.google.com/go/storage"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/time/rate"
	"google.golang.org/api/iterator"

	"github.com/pactaudit/pactaudit/pkg/util/resiliency"
)

// BlobStore persists and retrieves a bundle's files by bundle-relative
// path, independent of whether the bundle lives on local disk, S3, or
// GCS. A builder writes through it; the verifier reads back through
// it, so C12 works identically regardless of where a bundle was
// fetched from.
type BlobStore interface {
	WriteFile(ctx context.Context, relPath string, data []byte) error
	ReadFile(ctx context.Context, relPath string) ([]byte, error)
	ListFiles(ctx context.Context) ([]string, error)
}

// FSBlobStore is the default backend: a plain directory tree, laid out
// exactly as the manifest's entries describe it.
type FSBlobStore struct {
	root string
}

// NewFSBlobStore returns a BlobStore rooted at dir. dir is created on
// first write if it does not exist.
func NewFSBlobStore(dir string) *FSBlobStore {
	return &FSBlobStore{root: dir}
}

func (f *FSBlobStore) WriteFile(ctx context.Context, relPath string, data []byte) error {
	full := filepath.Join(f.root, filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("evidence: mkdir %s: %w", filepath.Dir(full), err)
	}
	return os.WriteFile(full, data, 0o644)
}

func (f *FSBlobStore) ReadFile(ctx context.Context, relPath string) ([]byte, error) {
	full := filepath.Join(f.root, filepath.FromSlash(relPath))
	return os.ReadFile(full)
}

func (f *FSBlobStore) ListFiles(ctx context.Context) ([]string, error) {
	var out []string
	err := filepath.Walk(f.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(f.root, path)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("evidence: walk %s: %w", f.root, err)
	}
	sort.Strings(out)
	return out, nil
}

// resilientTransport bounds outbound request rate and retries
// transient failures with jittered backoff, wired the same way for
// every remote backend below so neither one needs its own retry loop.
type resilientTransport struct {
	client  *resiliency.EnhancedClient
	limiter *rate.Limiter
}

func newResilientTransport(requestsPerSecond float64) *resilientTransport {
	return &resilientTransport{
		client:  resiliency.NewEnhancedClient(),
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
}

func (t *resilientTransport) wait(ctx context.Context) error {
	return t.limiter.Wait(ctx)
}

// roundTripper adapts EnhancedClient's Do-based resiliency to
// http.RoundTripper, the shape the GCS client library's
// option.WithHTTPClient requires.
type roundTripper struct{ c *resiliency.EnhancedClient }

func (r roundTripper) RoundTrip(req *http.Request) (*http.Response, error) { return r.c.Do(req) }

// S3BlobStore stores a bundle's files as individual objects under a
// key prefix in one S3 bucket, using the default AWS credential chain.
type S3BlobStore struct {
	client    *s3.Client
	bucket    string
	prefix    string
	transport *resilientTransport
}

// NewS3BlobStore loads the default AWS config (environment, shared
// config file, or instance role) and returns a store scoped to
// bucket/prefix.
func NewS3BlobStore(ctx context.Context, bucket, prefix string, requestsPerSecond float64) (*S3BlobStore, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithHTTPClient(resiliency.NewEnhancedClient()))
	if err != nil {
		return nil, fmt.Errorf("evidence: load aws config: %w", err)
	}
	return &S3BlobStore{
		client:    s3.NewFromConfig(cfg),
		bucket:    bucket,
		prefix:    prefix,
		transport: newResilientTransport(requestsPerSecond),
	}, nil
}

func (s *S3BlobStore) key(relPath string) string {
	if s.prefix == "" {
		return relPath
	}
	return s.prefix + "/" + relPath
}

func (s *S3BlobStore) WriteFile(ctx context.Context, relPath string, data []byte) error {
	if err := s.transport.wait(ctx); err != nil {
		return err
	}
	key := s.key(relPath)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("evidence: s3 put %s: %w", key, err)
	}
	return nil
}

func (s *S3BlobStore) ReadFile(ctx context.Context, relPath string) ([]byte, error) {
	if err := s.transport.wait(ctx); err != nil {
		return nil, err
	}
	key := s.key(relPath)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil {
		return nil, fmt.Errorf("evidence: s3 get %s: %w", key, err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

func (s *S3BlobStore) ListFiles(ctx context.Context) ([]string, error) {
	if err := s.transport.wait(ctx); err != nil {
		return nil, err
	}
	var out []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: &s.bucket,
		Prefix: &s.prefix,
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("evidence: s3 list %s: %w", s.prefix, err)
		}
		for _, obj := range page.Contents {
			rel := *obj.Key
			if s.prefix != "" {
				rel = rel[len(s.prefix)+1:]
			}
			out = append(out, rel)
		}
	}
	sort.Strings(out)
	return out, nil
}

// GCSBlobStore stores a bundle's files as individual objects under a
// name prefix in one GCS bucket, using application-default
// credentials.
type GCSBlobStore struct {
	client    *storage.Client
	bucket    string
	prefix    string
	transport *resilientTransport
}

// NewGCSBlobStore constructs a client against application-default
// credentials and returns a store scoped to bucket/prefix.
func NewGCSBlobStore(ctx context.Context, bucket, prefix string, requestsPerSecond float64) (*GCSBlobStore, error) {
	transport := newResilientTransport(requestsPerSecond)
	httpClient := &http.Client{Transport: roundTripper{c: transport.client}}
	client, err := storage.NewClient(ctx, storage.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("evidence: new gcs client: %w", err)
	}
	return &GCSBlobStore{client: client, bucket: bucket, prefix: prefix, transport: transport}, nil
}

func (g *GCSBlobStore) name(relPath string) string {
	if g.prefix == "" {
		return relPath
	}
	return g.prefix + "/" + relPath
}

func (g *GCSBlobStore) WriteFile(ctx context.Context, relPath string, data []byte) error {
	if err := g.transport.wait(ctx); err != nil {
		return err
	}
	w := g.client.Bucket(g.bucket).Object(g.name(relPath)).NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("evidence: gcs write %s: %w", relPath, err)
	}
	return w.Close()
}

func (g *GCSBlobStore) ReadFile(ctx context.Context, relPath string) ([]byte, error) {
	if err := g.transport.wait(ctx); err != nil {
		return nil, err
	}
	r, err := g.client.Bucket(g.bucket).Object(g.name(relPath)).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("evidence: gcs read %s: %w", relPath, err)
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (g *GCSBlobStore) ListFiles(ctx context.Context) ([]string, error) {
	if err := g.transport.wait(ctx); err != nil {
		return nil, err
	}
	var out []string
	it := g.client.Bucket(g.bucket).Objects(ctx, &storage.Query{Prefix: g.prefix})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("evidence: gcs list %s: %w", g.prefix, err)
		}
		rel := attrs.Name
		if g.prefix != "" {
			rel = rel[len(g.prefix)+1:]
		}
		out = append(out, rel)
	}
	sort.Strings(out)
	return out, nil
}
