package domain

import (
	"context"
	"io"
)

// BlobWriter uploads data to object storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}

// BlobReader downloads data from object storage. Get returns ErrNotFound for
// a missing object.
type BlobReader interface {
	Get(ctx context.Context, path string) (io.ReadCloser, error)
}

// ScanArchive keeps full scan reports, per-market rows included, in object
// storage.
type ScanArchive interface {
	ArchiveScan(ctx context.Context, report ScanReport) (path string, err error)
	LoadScan(ctx context.Context, scanID string) (ScanReport, error)
}
