package ports

import (
	"context"

	"media-portfolio-api/internal/domain/upload"
)

type BatchStatusStore interface {
	SaveBatchStatus(ctx context.Context, status *upload.BatchStatus) error
	// FetchBatchStatus returns nil, nil for unknown or expired batches.
	FetchBatchStatus(ctx context.Context, batchID string) (*upload.BatchStatus, error)
}
