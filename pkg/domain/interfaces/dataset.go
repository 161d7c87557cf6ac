package interfaces

import (
	"context"
	"io"

	"github.com/m-mizutani/fplfetch/pkg/domain/model"
)

// DatasetClient defines operations for retrieving a dataset archive over the network
type DatasetClient interface {
	// OpenArchive issues a streamed GET for the archive. The caller must close the
	// returned body. contentLength is -1 when the server does not declare it.
	OpenArchive(ctx context.Context, ds model.Dataset) (body io.ReadCloser, contentLength int64, err error)
}

// ArchiveExtractor unpacks a downloaded archive
type ArchiveExtractor interface {
	// Extract writes every entry of archivePath below destDir
	Extract(ctx context.Context, archivePath, destDir string) (*model.ExtractResult, error)
}

// Progress is a live byte counter for a single download
type Progress interface {
	Add(n int) error
	Close() error
}

// ProgressFactory starts a progress indicator. total is -1 when unknown.
type ProgressFactory interface {
	Start(total int64) Progress
}

// Console prints human-readable status lines, separate from structured logs
type Console interface {
	Notice(msg string)
	Success(msg string)
}

// FetchRecorder collects fetch metrics
type FetchRecorder interface {
	RecordFetch(outcome model.FetchOutcome)
	AddDownloadedBytes(n int64)
}

// ErrorReporter forwards errors of background work to an error tracker
type ErrorReporter interface {
	Report(ctx context.Context, err error)
}
