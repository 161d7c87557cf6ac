package interfaces

import (
	"context"

	"github.com/m-mizutani/fplfetch/pkg/domain/model"
)

// FetchUseCase defines the dataset fetch operation
type FetchUseCase interface {
	// Fetch makes sure the dataset is present on disk, downloading and extracting
	// it when the target directory is missing or empty
	Fetch(ctx context.Context, ds model.Dataset) (*model.FetchResult, error)
}
