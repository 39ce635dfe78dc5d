package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrTooLarge is returned when an upload exceeds the bucket's size limit.
var ErrTooLarge = errors.New("object exceeds maximum upload size")

// ErrNotFound is returned for a missing object.
var ErrNotFound = errors.New("object not found")

// Bucket stores objects as files under a directory.
type Bucket struct {
	dir     string
	maxSize int64
}

// NewBucket creates the bucket directory if needed.
func NewBucket(dir string, maxSize int64) (*Bucket, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create bucket directory: %w", err)
	}
	return &Bucket{dir: dir, maxSize: maxSize}, nil
}

// Put writes r to object atomically and returns the number of bytes stored.
func (b *Bucket) Put(ctx context.Context, object string, r io.Reader) (int64, error) {
	if err := ValidateObjectKey(object); err != nil {
		return 0, err
	}
	dst := b.path(object)
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return 0, fmt.Errorf("create object directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return 0, fmt.Errorf("create temp object: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	n, err := io.Copy(tmp, io.LimitReader(&ctxReader{ctx: ctx, r: r}, b.maxSize+1))
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return 0, fmt.Errorf("write object: %w", err)
	}
	if n > b.maxSize {
		return 0, ErrTooLarge
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return 0, fmt.Errorf("commit object: %w", err)
	}
	return n, nil
}

// Open returns the stored object. The caller closes it.
func (b *Bucket) Open(object string) (*os.File, os.FileInfo, error) {
	if err := ValidateObjectKey(object); err != nil {
		return nil, nil, err
	}
	f, err := os.Open(b.path(object))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open object: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, nil, fmt.Errorf("stat object: %w", err)
	}
	return f, info, nil
}

func (b *Bucket) path(object string) string {
	return filepath.Join(b.dir, filepath.FromSlash(object))
}

// ctxReader stops a copy once the request context is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
