package media

import (
	"context"
)

// Repository is the metadata store. Lookups return nil, nil when the row
// does not exist or belongs to another owner.
type Repository interface {
	CreateMedia(ctx context.Context, req *Draft) (*Asset, error)
	FetchMediaByOwner(ctx context.Context, ownerID OwnerID) (Assets, error)
	FetchMediaByID(ctx context.Context, ownerID OwnerID, id ID) (*Asset, error)
	UpdateMedia(ctx context.Context, ownerID OwnerID, id ID, patch Patch) (*Asset, error)
	ClearProfilePicture(ctx context.Context, ownerID OwnerID) error
	DeleteMedia(ctx context.Context, ownerID OwnerID, id ID) (bool, error)
	CountMediaByType(ctx context.Context, ownerID OwnerID) (Counters, error)
	// BlobReferenced reports whether any row stores url as its storage or
	// thumbnail URL.
	BlobReferenced(ctx context.Context, url string) (bool, error)
}
