package types

import "errors"

var (
	// ErrUnexpectedStatus is returned when the archive server answers with a non-2xx status
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")

	// ErrInvalidArchive is returned when the downloaded file cannot be read as a zip archive
	ErrInvalidArchive = errors.New("invalid archive")

	// ErrFetchInProgress is returned when a fetch is requested while another one is running
	ErrFetchInProgress = errors.New("fetch already in progress")
)
