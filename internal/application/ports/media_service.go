package ports

import (
	"context"

	"media-portfolio-api/internal/domain/media"
	"media-portfolio-api/internal/domain/upload"
)

type UploadService interface {
	UploadBatch(
		ctx context.Context,
		ownerID media.OwnerID,
		batchID string,
		candidates []upload.Candidate,
		meta upload.BatchMetadata,
	) (*upload.BatchResult, error)
	Status(ctx context.Context, ownerID media.OwnerID, batchID string) (*upload.BatchStatus, error)
	Cancel(ownerID media.OwnerID, batchID string) bool
}

type LifecycleService interface {
	ListMedia(ctx context.Context, ownerID media.OwnerID) (media.Assets, error)
	Quota(ctx context.Context, ownerID media.OwnerID) (*QuotaView, error)
	SetProfilePicture(ctx context.Context, ownerID media.OwnerID, id media.ID) error
	ToggleFeatured(ctx context.Context, ownerID media.OwnerID, id media.ID) (*media.Asset, error)
	DeleteMedia(ctx context.Context, ownerID media.OwnerID, id media.ID) (*DeleteReport, error)
}

type (
	QuotaView struct {
		Used   media.Counters
		Limits media.Counters
	}

	// ConsistencyWarning reports a blob that may outlive its row.
	ConsistencyWarning struct {
		MediaID media.ID
		URL     string
		Err     error
	}

	DeleteReport struct {
		Asset    *media.Asset
		Warnings []ConsistencyWarning
	}
)
