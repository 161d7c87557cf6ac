package usecase

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/fplfetch/pkg/domain/interfaces"
	"github.com/m-mizutani/fplfetch/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
)

// chunkSize is the read size for the response body
const chunkSize = 1024

type fetchUseCase struct {
	client            interfaces.DatasetClient
	extractor         interfaces.ArchiveExtractor
	progress          interfaces.ProgressFactory
	console           interfaces.Console
	recorder          interfaces.FetchRecorder
	inactivityTimeout time.Duration
}

// FetchOption is a functional option for the fetch use case
type FetchOption func(*fetchUseCase)

// WithProgress sets the progress indicator factory
func WithProgress(p interfaces.ProgressFactory) FetchOption {
	return func(uc *fetchUseCase) {
		uc.progress = p
	}
}

// WithConsole sets where human-readable status lines go
func WithConsole(c interfaces.Console) FetchOption {
	return func(uc *fetchUseCase) {
		uc.console = c
	}
}

// WithRecorder sets the metrics recorder
func WithRecorder(r interfaces.FetchRecorder) FetchOption {
	return func(uc *fetchUseCase) {
		uc.recorder = r
	}
}

// WithInactivityTimeout aborts the download when no data arrives for d.
// Zero keeps the download blocking for as long as the server holds the connection.
func WithInactivityTimeout(d time.Duration) FetchOption {
	return func(uc *fetchUseCase) {
		uc.inactivityTimeout = d
	}
}

// NewFetch creates a new instance of FetchUseCase
func NewFetch(client interfaces.DatasetClient, extractor interfaces.ArchiveExtractor, opts ...FetchOption) interfaces.FetchUseCase {
	uc := &fetchUseCase{
		client:    client,
		extractor: extractor,
		progress:  nopProgressFactory{},
		console:   nopConsole{},
		recorder:  nopRecorder{},
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Fetch downloads and extracts the dataset unless its target directory already holds data
func (uc *fetchUseCase) Fetch(ctx context.Context, ds model.Dataset) (*model.FetchResult, error) {
	result, err := uc.fetch(ctx, ds)
	switch {
	case err != nil:
		uc.recorder.RecordFetch(model.FetchOutcomeFailed)
	case result.Skipped:
		uc.recorder.RecordFetch(model.FetchOutcomeSkipped)
	default:
		uc.recorder.RecordFetch(model.FetchOutcomeDownloaded)
	}
	return result, err
}

func (uc *fetchUseCase) fetch(ctx context.Context, ds model.Dataset) (*model.FetchResult, error) {
	logger := ctxlog.From(ctx)

	if err := os.MkdirAll(ds.TargetDir, 0755); err != nil {
		return nil, goerr.Wrap(err, "failed to create target directory", goerr.V("target_dir", ds.TargetDir))
	}

	present, err := ds.IsPresent()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to inspect target directory", goerr.V("target_dir", ds.TargetDir))
	}
	if present {
		logger.Info("Dataset already present, skipping download", "target_dir", ds.TargetDir)
		uc.console.Success("data already exists")
		return &model.FetchResult{Skipped: true}, nil
	}

	logger.Info("Downloading dataset",
		"url", ds.URL,
		"archive_path", ds.ArchivePath,
	)
	uc.console.Notice("Downloading data")

	written, contentLength, err := uc.download(ctx, ds)
	if err != nil {
		return nil, err
	}
	uc.recorder.AddDownloadedBytes(written)

	logger.Info("Downloaded archive",
		"size_bytes", written,
		"content_length", contentLength,
		"archive_path", ds.ArchivePath,
	)

	extracted, err := uc.extractor.Extract(ctx, ds.ArchivePath, ds.ExtractDir())
	if err != nil {
		return nil, goerr.Wrap(err, "failed to extract archive",
			goerr.V("archive_path", ds.ArchivePath),
			goerr.V("extract_dir", ds.ExtractDir()),
		)
	}

	logger.Info("Extracted dataset",
		"extract_dir", ds.ExtractDir(),
		"file_count", len(extracted.Files),
		"total_size_bytes", extracted.Size,
	)
	uc.console.Success(fmt.Sprintf("Extracted %d files into %s", len(extracted.Files), ds.ExtractDir()))

	return &model.FetchResult{
		ArchiveBytes:  written,
		ContentLength: contentLength,
		Files:         extracted.Files,
		Size:          extracted.Size,
	}, nil
}

// download streams the archive body into ds.ArchivePath in chunkSize reads
func (uc *fetchUseCase) download(ctx context.Context, ds model.Dataset) (int64, int64, error) {
	ctx, wd := newWatchdog(ctx, uc.inactivityTimeout)
	defer wd.Stop()

	body, contentLength, err := uc.client.OpenArchive(ctx, ds)
	if err != nil {
		return 0, 0, goerr.Wrap(err, "failed to request archive", goerr.V("url", ds.URL))
	}
	defer body.Close()

	out, err := os.OpenFile(ds.ArchivePath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return 0, 0, goerr.Wrap(err, "failed to open archive file", goerr.V("archive_path", ds.ArchivePath))
	}
	defer out.Close()

	bar := uc.progress.Start(contentLength)
	defer bar.Close()

	var written int64
	var barErr error
	buf := make([]byte, chunkSize)
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			wd.Kick()
			if _, err := out.Write(buf[:n]); err != nil {
				return written, contentLength, goerr.Wrap(err, "failed to write archive file",
					goerr.V("archive_path", ds.ArchivePath),
					goerr.V("written", written),
				)
			}
			written += int64(n)
			if err := bar.Add(n); err != nil && barErr == nil {
				barErr = err
				ctxlog.From(ctx).Debug("Progress indicator rejected chunk",
					"error", err,
					"written", written,
					"content_length", contentLength,
				)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			if cause := context.Cause(ctx); cause != nil {
				readErr = cause
			}
			return written, contentLength, goerr.Wrap(readErr, "failed to read archive body",
				goerr.V("url", ds.URL),
				goerr.V("written", written),
			)
		}
	}

	if err := out.Close(); err != nil {
		return written, contentLength, goerr.Wrap(err, "failed to close archive file", goerr.V("archive_path", ds.ArchivePath))
	}
	return written, contentLength, nil
}
