package model

import (
	"io"
	"os"
	"path/filepath"
)

const (
	// DefaultDatasetURL is the Zenodo record serving the FPL SciPy 2023 dataset
	DefaultDatasetURL = "https://zenodo.org/record/8140484/files/fpl-scipy2023-data.zip"

	// DefaultDatasetName is both the target directory name and the archive's top-level folder
	DefaultDatasetName = "fpl-scipy2023-data"
)

// Dataset describes where a dataset comes from and where it lives on disk
type Dataset struct {
	URL         string // Remote zip archive
	TargetDir   string // Directory holding the extracted dataset
	ArchivePath string // Downloaded zip file, sibling of TargetDir
	AuthToken   string `masq:"secret"` // Optional bearer token for restricted records
}

// DefaultDataset returns the dataset layout rooted at baseDir
func DefaultDataset(baseDir string) Dataset {
	return Dataset{
		URL:         DefaultDatasetURL,
		TargetDir:   filepath.Join(baseDir, DefaultDatasetName),
		ArchivePath: filepath.Join(baseDir, DefaultDatasetName+".zip"),
	}
}

// ExtractDir is the directory archive entries are extracted into. The archive's
// top-level folder is expected to recreate TargetDir inside it.
func (d Dataset) ExtractDir() string {
	return filepath.Dir(d.TargetDir)
}

// IsPresent reports whether TargetDir exists and holds at least one entry.
// A directory that exists but is empty is treated as not yet fetched.
func (d Dataset) IsPresent() (bool, error) {
	f, err := os.Open(d.TargetDir)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()

	names, err := f.Readdirnames(1)
	if err == io.EOF {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return len(names) > 0, nil
}

// DatasetStatus is the JSON view of a dataset returned by the status endpoint
type DatasetStatus struct {
	Present     bool   `json:"present"`
	URL         string `json:"url"`
	TargetDir   string `json:"target_dir"`
	ArchivePath string `json:"archive_path"`

	// LastJob is the most recent fetch started through the server, if any
	LastJob *FetchJobStatus `json:"last_job,omitempty"`
}
