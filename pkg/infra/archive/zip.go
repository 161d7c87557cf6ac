package archive

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/fplfetch/pkg/domain/interfaces"
	"github.com/m-mizutani/fplfetch/pkg/domain/model"
	"github.com/m-mizutani/fplfetch/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
	"github.com/mholt/archiver/v3"
)

type zipExtractor struct {
	zip *archiver.Zip
}

// NewZipExtractor creates an extractor for zip archives. Entries already on disk
// are overwritten so that a re-run after a partial extraction can complete.
func NewZipExtractor() interfaces.ArchiveExtractor {
	z := archiver.NewZip()
	z.OverwriteExisting = true
	z.MkdirAll = true
	z.ImplicitTopLevelFolder = false

	return &zipExtractor{zip: z}
}

// Extract lists the archive to validate it, then unpacks every entry below destDir.
// An entry that would be written outside destDir fails the whole extraction
// before anything is unpacked.
func (x *zipExtractor) Extract(ctx context.Context, archivePath, destDir string) (*model.ExtractResult, error) {
	logger := ctxlog.From(ctx)

	if err := ctx.Err(); err != nil {
		return nil, goerr.Wrap(err, "extraction cancelled")
	}

	base := filepath.Clean(destDir)
	root := base + string(os.PathSeparator)

	result := &model.ExtractResult{}
	var illegal error
	err := x.zip.Walk(archivePath, func(f archiver.File) error {
		name := f.Name()
		if hdr, ok := f.Header.(zip.FileHeader); ok {
			name = hdr.Name
		}

		if dest := filepath.Join(destDir, name); dest != base && !strings.HasPrefix(dest, root) {
			illegal = goerr.Wrap(types.ErrInvalidArchive, "archive entry escapes destination",
				goerr.V("archive", archivePath),
				goerr.V("entry", name),
				goerr.V("dest_dir", destDir),
			)
			return archiver.ErrStopWalk
		}

		if f.IsDir() {
			return nil
		}
		result.Files = append(result.Files, name)
		result.Size += f.Size()
		return nil
	})
	if illegal != nil {
		return nil, illegal
	}
	if err != nil {
		return nil, goerr.Wrap(types.ErrInvalidArchive, "failed to read zip archive",
			goerr.V("archive", archivePath),
			goerr.V("cause", err.Error()),
		)
	}

	logger.Debug("Extracting archive",
		"archive", archivePath,
		"dest_dir", destDir,
		"file_count", len(result.Files),
	)

	if err := x.zip.Unarchive(archivePath, destDir); err != nil {
		return nil, goerr.Wrap(err, "failed to extract zip archive",
			goerr.V("archive", archivePath),
			goerr.V("dest_dir", destDir),
		)
	}

	return result, nil
}
