package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// ErrNotFound is returned when a file or object does not exist.
var ErrNotFound = errors.New("file not found")

// FileSource reads input files from the local filesystem or Cloud Storage.
// This interface enables mocking in ingestion tests.
type FileSource interface {
	// ReadFile returns the full contents of a local path or gs:// URI.
	ReadFile(ctx context.Context, p string) ([]byte, error)

	// List returns the files directly under dir (or gs:// prefix) whose names
	// end in ext, sorted lexically.
	List(ctx context.Context, dir, ext string) ([]string, error)
}

// Source is the concrete FileSource. The storage client is created on the
// first gs:// access so purely local runs need no credentials.
type Source struct {
	mu     sync.Mutex
	client *storage.Client
}

// NewSource creates a new Source.
func NewSource() *Source {
	return &Source{}
}

func (s *Source) storageClient(ctx context.Context) (*storage.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return s.client, nil
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	s.client = client
	return client, nil
}

// Close releases the storage client, if one was created.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	return err
}

// ReadFile implements FileSource.
func (s *Source) ReadFile(ctx context.Context, p string) ([]byte, error) {
	if !IsURI(p) {
		data, err := os.ReadFile(p)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
		}
		return data, err
	}

	bucketName, objectPath, err := ParseURI(p)
	if err != nil {
		return nil, err
	}
	if objectPath == "" {
		return nil, fmt.Errorf("invalid GCS URI (no object path): %s", p)
	}

	client, err := s.storageClient(ctx)
	if err != nil {
		return nil, err
	}

	rc, err := client.Bucket(bucketName).Object(objectPath).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	if err != nil {
		return nil, fmt.Errorf("ReadFile: reading object %s/%s: %w", bucketName, objectPath, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("ReadFile: reading bytes: %w", err)
	}

	return data, nil
}

// List implements FileSource.
func (s *Source) List(ctx context.Context, dir, ext string) ([]string, error) {
	if !IsURI(dir) {
		matches, err := filepath.Glob(filepath.Join(dir, "*"+ext))
		if err != nil {
			return nil, fmt.Errorf("List: globbing %s: %w", dir, err)
		}
		sort.Strings(matches)
		return matches, nil
	}

	bucketName, prefix, err := ParseURI(dir)
	if err != nil {
		return nil, err
	}
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	client, err := s.storageClient(ctx)
	if err != nil {
		return nil, err
	}

	it := client.Bucket(bucketName).Objects(ctx, &storage.Query{Prefix: prefix, Delimiter: "/"})
	var out []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("List: iterating gs://%s/%s: %w", bucketName, prefix, err)
		}
		// Delimiter queries also yield synthetic prefix entries.
		if attrs.Name == "" || !strings.HasSuffix(attrs.Name, ext) {
			continue
		}
		out = append(out, JoinURI(bucketName, attrs.Name))
	}
	sort.Strings(out)
	return out, nil
}

var _ FileSource = (*Source)(nil)
