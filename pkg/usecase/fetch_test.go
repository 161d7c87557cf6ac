package usecase_test

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/gt"

	"github.com/m-mizutani/fplfetch/pkg/domain/interfaces"
	"github.com/m-mizutani/fplfetch/pkg/domain/model"
	"github.com/m-mizutani/fplfetch/pkg/domain/types"
	"github.com/m-mizutani/fplfetch/pkg/infra/archive"
	httpinfra "github.com/m-mizutani/fplfetch/pkg/infra/http"
	progressinfra "github.com/m-mizutani/fplfetch/pkg/infra/progress"
	"github.com/m-mizutani/fplfetch/pkg/usecase"
)

// MockDatasetClient is a mock implementation of DatasetClient
type MockDatasetClient struct {
	openArchiveFunc func(ctx context.Context, ds model.Dataset) (io.ReadCloser, int64, error)
	calls           []model.Dataset
}

func (m *MockDatasetClient) OpenArchive(ctx context.Context, ds model.Dataset) (io.ReadCloser, int64, error) {
	m.calls = append(m.calls, ds)
	if m.openArchiveFunc != nil {
		return m.openArchiveFunc(ctx, ds)
	}
	return nil, 0, errors.New("mock not configured")
}

// MockExtractor is a mock implementation of ArchiveExtractor
type MockExtractor struct {
	extractFunc func(ctx context.Context, archivePath, destDir string) (*model.ExtractResult, error)
}

func (m *MockExtractor) Extract(ctx context.Context, archivePath, destDir string) (*model.ExtractResult, error) {
	if m.extractFunc != nil {
		return m.extractFunc(ctx, archivePath, destDir)
	}
	return &model.ExtractResult{}, nil
}

// recordingProgress captures every progress update
type recordingProgress struct {
	totals []int64
	adds   []int
	closed int
}

func (p *recordingProgress) Start(total int64) interfaces.Progress {
	p.totals = append(p.totals, total)
	return p
}

func (p *recordingProgress) Add(n int) error {
	p.adds = append(p.adds, n)
	return nil
}

func (p *recordingProgress) Close() error {
	p.closed++
	return nil
}

func (p *recordingProgress) sum() int64 {
	var total int64
	for _, n := range p.adds {
		total += int64(n)
	}
	return total
}

// recordingConsole captures status lines
type recordingConsole struct {
	lines []string
}

func (c *recordingConsole) Notice(msg string)  { c.lines = append(c.lines, msg) }
func (c *recordingConsole) Success(msg string) { c.lines = append(c.lines, msg) }

// recordingRecorder captures metrics
type recordingRecorder struct {
	mu       sync.Mutex
	outcomes []model.FetchOutcome
	bytes    int64
}

func (r *recordingRecorder) RecordFetch(outcome model.FetchOutcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func (r *recordingRecorder) AddDownloadedBytes(n int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bytes += n
}

// createTestZip creates a dataset ZIP with hello.txt inside the dataset folder
func createTestZip(t *testing.T) []byte {
	var buf bytes.Buffer
	zipWriter := zip.NewWriter(&buf)

	files := map[string]string{
		model.DefaultDatasetName + "/hello.txt":              "hi",
		model.DefaultDatasetName + "/2022-23/players_raw.csv": "id,web_name\n1,Salah\n",
	}

	for filename, content := range files {
		writer, err := zipWriter.Create(filename)
		gt.NoError(t, err)

		_, err = writer.Write([]byte(content))
		gt.NoError(t, err)
	}

	gt.NoError(t, zipWriter.Close())
	return buf.Bytes()
}

func newDataset(t *testing.T, url string) model.Dataset {
	ds := model.DefaultDataset(t.TempDir())
	ds.URL = url
	return ds
}

func TestFetchUseCase_Fetch_AlreadyPresent(t *testing.T) {
	ctx := context.Background()
	ds := newDataset(t, "http://example.invalid/data.zip")

	gt.NoError(t, os.MkdirAll(ds.TargetDir, 0755))
	gt.NoError(t, os.WriteFile(filepath.Join(ds.TargetDir, "players.csv"), []byte("id\n"), 0644))

	client := &MockDatasetClient{}
	console := &recordingConsole{}
	recorder := &recordingRecorder{}
	extractor := &MockExtractor{
		extractFunc: func(ctx context.Context, archivePath, destDir string) (*model.ExtractResult, error) {
			t.Error("extractor must not be called")
			return nil, nil
		},
	}

	uc := usecase.NewFetch(client, extractor,
		usecase.WithConsole(console),
		usecase.WithRecorder(recorder),
	)

	result, err := uc.Fetch(ctx, ds)
	gt.NoError(t, err)
	gt.True(t, result.Skipped)

	// No network call and nothing written
	gt.Equal(t, len(client.calls), 0)
	entries, err := os.ReadDir(ds.TargetDir)
	gt.NoError(t, err)
	gt.Equal(t, len(entries), 1)
	_, err = os.Stat(ds.ArchivePath)
	gt.True(t, os.IsNotExist(err))

	gt.Equal(t, console.lines, []string{"data already exists"})
	gt.Equal(t, recorder.outcomes, []model.FetchOutcome{model.FetchOutcomeSkipped})
}

func TestFetchUseCase_Fetch_FirstRun(t *testing.T) {
	zipData := createTestZip(t)

	tests := []struct {
		name      string
		createDir bool
	}{
		{name: "target directory missing", createDir: false},
		{name: "target directory exists but empty", createDir: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/zip")
				w.Header().Set("Content-Length", strconv.Itoa(len(zipData)))
				_, _ = w.Write(zipData)
			}))
			defer server.Close()

			ds := newDataset(t, server.URL)
			if tt.createDir {
				gt.NoError(t, os.MkdirAll(ds.TargetDir, 0755))
			}

			console := &recordingConsole{}
			progress := &recordingProgress{}
			recorder := &recordingRecorder{}
			uc := usecase.NewFetch(httpinfra.NewClient(), archive.NewZipExtractor(),
				usecase.WithConsole(console),
				usecase.WithProgress(progress),
				usecase.WithRecorder(recorder),
			)

			result, err := uc.Fetch(ctx, ds)
			gt.NoError(t, err)
			gt.Value(t, result.Skipped).Equal(false)
			gt.Equal(t, result.ArchiveBytes, int64(len(zipData)))
			gt.Equal(t, result.ContentLength, int64(len(zipData)))
			gt.Equal(t, len(result.Files), 2)

			content, err := os.ReadFile(filepath.Join(ds.TargetDir, "hello.txt"))
			gt.NoError(t, err)
			gt.Equal(t, string(content), "hi")

			// Archive is kept next to the target directory
			archived, err := os.ReadFile(ds.ArchivePath)
			gt.NoError(t, err)
			gt.Equal(t, archived, zipData)

			gt.Equal(t, progress.totals, []int64{int64(len(zipData))})
			gt.Equal(t, progress.sum(), int64(len(zipData)))
			gt.Equal(t, progress.closed, 1)

			gt.Equal(t, console.lines[0], "Downloading data")
			gt.Equal(t, recorder.outcomes, []model.FetchOutcome{model.FetchOutcomeDownloaded})
			gt.Equal(t, recorder.bytes, int64(len(zipData)))

			// A second run finds the data and does nothing
			again, err := uc.Fetch(ctx, ds)
			gt.NoError(t, err)
			gt.True(t, again.Skipped)
		})
	}
}

func TestFetchUseCase_Fetch_ChunkBoundaries(t *testing.T) {
	ctx := context.Background()

	payload := bytes.Repeat([]byte("0123456789"), 250)
	gt.Equal(t, len(payload), 2500)

	// Flush sizes deliberately straddle the 1024 byte read size
	flushSizes := []int{1, 700, 1023, 776}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		offset := 0
		for _, size := range flushSizes {
			_, _ = w.Write(payload[offset : offset+size])
			flusher.Flush()
			offset += size
		}
	}))
	defer server.Close()

	ds := newDataset(t, server.URL)
	progress := &recordingProgress{}
	var extractedFrom string
	extractor := &MockExtractor{
		extractFunc: func(ctx context.Context, archivePath, destDir string) (*model.ExtractResult, error) {
			extractedFrom = archivePath
			gt.Equal(t, destDir, filepath.Dir(ds.TargetDir))
			return &model.ExtractResult{}, nil
		},
	}

	uc := usecase.NewFetch(httpinfra.NewClient(), extractor, usecase.WithProgress(progress))

	result, err := uc.Fetch(ctx, ds)
	gt.NoError(t, err)
	gt.Equal(t, result.ArchiveBytes, int64(2500))
	gt.Equal(t, extractedFrom, ds.ArchivePath)

	info, err := os.Stat(ds.ArchivePath)
	gt.NoError(t, err)
	gt.Equal(t, info.Size(), int64(2500))

	written, err := os.ReadFile(ds.ArchivePath)
	gt.NoError(t, err)
	gt.Equal(t, written, payload)

	gt.Equal(t, progress.sum(), int64(2500))
	for _, n := range progress.adds {
		gt.True(t, n <= 1024)
	}
}

func TestFetchUseCase_Fetch_UnknownContentLength(t *testing.T) {
	ctx := context.Background()
	zipData := createTestZip(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Flushing before the body is complete forces chunked encoding, so no Content-Length
		half := len(zipData) / 2
		_, _ = w.Write(zipData[:half])
		w.(http.Flusher).Flush()
		_, _ = w.Write(zipData[half:])
	}))
	defer server.Close()

	ds := newDataset(t, server.URL)
	progress := &recordingProgress{}
	uc := usecase.NewFetch(httpinfra.NewClient(), archive.NewZipExtractor(), usecase.WithProgress(progress))

	result, err := uc.Fetch(ctx, ds)
	gt.NoError(t, err)
	gt.Equal(t, result.ContentLength, int64(-1))
	gt.Equal(t, result.ArchiveBytes, int64(len(zipData)))
	gt.Equal(t, progress.totals, []int64{-1})

	content, err := os.ReadFile(filepath.Join(ds.TargetDir, "hello.txt"))
	gt.NoError(t, err)
	gt.Equal(t, string(content), "hi")
}

func TestFetchUseCase_Fetch_CreatesTargetDirectory(t *testing.T) {
	ctx := context.Background()
	zipData := createTestZip(t)
	ds := newDataset(t, "http://example.invalid/data.zip")

	_, err := os.Stat(ds.TargetDir)
	gt.True(t, os.IsNotExist(err))

	client := &MockDatasetClient{
		openArchiveFunc: func(ctx context.Context, ds model.Dataset) (io.ReadCloser, int64, error) {
			return io.NopCloser(bytes.NewReader(zipData)), int64(len(zipData)), nil
		},
	}
	uc := usecase.NewFetch(client, archive.NewZipExtractor())

	_, err = uc.Fetch(ctx, ds)
	gt.NoError(t, err)
	gt.Equal(t, len(client.calls), 1)

	info, err := os.Stat(ds.TargetDir)
	gt.NoError(t, err)
	gt.True(t, info.IsDir())
}

func TestFetchUseCase_Fetch_InvalidZip(t *testing.T) {
	ctx := context.Background()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>this is not valid zip data</html>"))
	}))
	defer server.Close()

	ds := newDataset(t, server.URL)
	recorder := &recordingRecorder{}
	uc := usecase.NewFetch(httpinfra.NewClient(), archive.NewZipExtractor(), usecase.WithRecorder(recorder))

	result, err := uc.Fetch(ctx, ds)
	gt.Error(t, err)
	gt.Value(t, result).Nil()
	gt.True(t, errors.Is(err, types.ErrInvalidArchive))
	gt.String(t, err.Error()).Contains("failed to extract archive")

	// The partial archive stays on disk and the target stays empty
	_, err = os.Stat(ds.ArchivePath)
	gt.NoError(t, err)
	entries, err := os.ReadDir(ds.TargetDir)
	gt.NoError(t, err)
	gt.Equal(t, len(entries), 0)

	gt.Equal(t, recorder.outcomes, []model.FetchOutcome{model.FetchOutcomeFailed})
}

func TestFetchUseCase_Fetch_DownloadError(t *testing.T) {
	ctx := context.Background()
	ds := newDataset(t, "http://example.invalid/data.zip")

	client := &MockDatasetClient{
		openArchiveFunc: func(ctx context.Context, ds model.Dataset) (io.ReadCloser, int64, error) {
			return nil, 0, errors.New("connection reset")
		},
	}
	uc := usecase.NewFetch(client, &MockExtractor{})

	result, err := uc.Fetch(ctx, ds)
	gt.Error(t, err)
	gt.Value(t, result).Nil()
	gt.String(t, err.Error()).Contains("failed to request archive")

	_, err = os.Stat(ds.ArchivePath)
	gt.True(t, os.IsNotExist(err))
}

func TestFetchUseCase_Fetch_UnexpectedStatus(t *testing.T) {
	ctx := context.Background()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer server.Close()

	ds := newDataset(t, server.URL)
	uc := usecase.NewFetch(httpinfra.NewClient(), archive.NewZipExtractor())

	_, err := uc.Fetch(ctx, ds)
	gt.Error(t, err)
	gt.True(t, errors.Is(err, types.ErrUnexpectedStatus))
}

// failingReader returns some data and then a network error
type failingReader struct {
	sent bool
}

func (r *failingReader) Read(p []byte) (int, error) {
	if r.sent {
		return 0, errors.New("connection reset by peer")
	}
	r.sent = true
	return copy(p, "PK partial"), nil
}

func (r *failingReader) Close() error { return nil }

func TestFetchUseCase_Fetch_BodyReadError(t *testing.T) {
	ctx := context.Background()
	ds := newDataset(t, "http://example.invalid/data.zip")

	client := &MockDatasetClient{
		openArchiveFunc: func(ctx context.Context, ds model.Dataset) (io.ReadCloser, int64, error) {
			return &failingReader{}, -1, nil
		},
	}
	uc := usecase.NewFetch(client, &MockExtractor{
		extractFunc: func(ctx context.Context, archivePath, destDir string) (*model.ExtractResult, error) {
			t.Error("extractor must not be called after a failed download")
			return nil, nil
		},
	})

	_, err := uc.Fetch(ctx, ds)
	gt.Error(t, err)
	gt.String(t, err.Error()).Contains("failed to read archive body")

	// Partial archive is left behind
	written, err := os.ReadFile(ds.ArchivePath)
	gt.NoError(t, err)
	gt.Equal(t, string(written), "PK partial")
}

func TestFetchUseCase_Fetch_InactivityTimeout(t *testing.T) {
	ctx := context.Background()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("PK"))
		w.(http.Flusher).Flush()

		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer server.Close()

	ds := newDataset(t, server.URL)
	uc := usecase.NewFetch(httpinfra.NewClient(), archive.NewZipExtractor(),
		usecase.WithInactivityTimeout(100*time.Millisecond),
	)

	start := time.Now()
	_, err := uc.Fetch(ctx, ds)
	gt.Error(t, err)
	gt.True(t, errors.Is(err, os.ErrDeadlineExceeded))
	gt.True(t, time.Since(start) < 5*time.Second)
}

func TestFetchUseCase_Fetch_BodyLongerThanDeclared(t *testing.T) {
	var logBuf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logBuf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := ctxlog.With(context.Background(), logger)

	ds := newDataset(t, "http://example.invalid/data.zip")
	payload := bytes.Repeat([]byte("x"), 3000)

	client := &MockDatasetClient{
		openArchiveFunc: func(ctx context.Context, ds model.Dataset) (io.ReadCloser, int64, error) {
			return io.NopCloser(bytes.NewReader(payload)), 2500, nil
		},
	}

	var barOut bytes.Buffer
	bars := progressinfra.NewFactory(progressinfra.WithOutput(&barOut), progressinfra.WithThrottle(0))
	uc := usecase.NewFetch(client, &MockExtractor{}, usecase.WithProgress(bars))

	result, err := uc.Fetch(ctx, ds)
	gt.NoError(t, err)
	gt.Equal(t, result.ArchiveBytes, int64(3000))
	gt.Equal(t, result.ContentLength, int64(2500))

	written, err := os.ReadFile(ds.ArchivePath)
	gt.NoError(t, err)
	gt.Equal(t, written, payload)

	gt.String(t, logBuf.String()).Contains("Progress indicator rejected chunk")
	gt.String(t, logBuf.String()).Contains("exceeds max")
}
