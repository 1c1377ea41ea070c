package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/alanyoungcy/polyanalytics/internal/domain"
)

// multipartThreshold is the encoded size above which reports go through the
// multipart uploader.
const multipartThreshold = 8 * 1024 * 1024

// ScanArchiver implements domain.ScanArchive by storing each report as one
// JSON object under {prefix}/{scanID}.json.
type ScanArchiver struct {
	writer domain.BlobWriter
	reader domain.BlobReader
	prefix string
}

// NewScanArchiver creates a ScanArchiver. An empty prefix defaults to "scans".
func NewScanArchiver(writer domain.BlobWriter, reader domain.BlobReader, prefix string) *ScanArchiver {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = "scans"
	}
	return &ScanArchiver{writer: writer, reader: reader, prefix: prefix}
}

// ScanPath returns the object key for scanID.
func (a *ScanArchiver) ScanPath(scanID string) string {
	return a.prefix + "/" + scanID + ".json"
}

// ArchiveScan uploads report and returns its key.
func (a *ScanArchiver) ArchiveScan(ctx context.Context, report domain.ScanReport) (string, error) {
	if report.ID == "" {
		return "", fmt.Errorf("s3blob: archive scan: %w", domain.ErrMissingIdentifier)
	}
	buf, err := json.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("s3blob: archive scan %s marshal: %w", report.ID, err)
	}

	path := a.ScanPath(report.ID)
	if len(buf) > multipartThreshold {
		err = a.writer.PutMultipart(ctx, path, bytes.NewReader(buf), 0)
	} else {
		err = a.writer.Put(ctx, path, bytes.NewReader(buf), "application/json")
	}
	if err != nil {
		return "", fmt.Errorf("s3blob: archive scan %s upload: %w", report.ID, err)
	}
	return path, nil
}

// LoadScan reads back an archived report.
func (a *ScanArchiver) LoadScan(ctx context.Context, scanID string) (domain.ScanReport, error) {
	if a.reader == nil {
		return domain.ScanReport{}, fmt.Errorf("s3blob: load scan %s: %w", scanID, domain.ErrNotFound)
	}
	body, err := a.reader.Get(ctx, a.ScanPath(scanID))
	if err != nil {
		return domain.ScanReport{}, fmt.Errorf("s3blob: load scan %s: %w", scanID, err)
	}
	defer body.Close()

	var report domain.ScanReport
	if err := json.NewDecoder(body).Decode(&report); err != nil {
		return domain.ScanReport{}, fmt.Errorf("s3blob: decode scan %s: %w", scanID, err)
	}
	return report, nil
}

var _ domain.ScanArchive = (*ScanArchiver)(nil)
