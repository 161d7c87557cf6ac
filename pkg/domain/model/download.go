package model

// FetchOutcome labels how a fetch finished
type FetchOutcome string

const (
	FetchOutcomeSkipped    FetchOutcome = "skipped"
	FetchOutcomeDownloaded FetchOutcome = "downloaded"
	FetchOutcomeFailed     FetchOutcome = "failed"
)

// FetchResult represents the outcome of a dataset fetch
type FetchResult struct {
	Skipped       bool     // Target directory already held data
	ArchiveBytes  int64    // Bytes written to the archive file
	ContentLength int64    // Declared body size, -1 if the server did not send one
	Files         []string // Archive entries extracted
	Size          int64    // Total uncompressed size in bytes
}

// ExtractResult represents the result of a ZIP extraction
type ExtractResult struct {
	Files []string // Regular file entries, as named in the archive
	Size  int64    // Total uncompressed size in bytes
}
