package media

import (
	"time"

	"github.com/google/uuid"
)

type (
	Media struct {
		ID      uuid.UUID
		OwnerID uuid.UUID

		Title       string
		Description string
		MediaType   string

		StorageURL   string
		ThumbnailURL *string

		FileSizeBytes int64
		MimeType      string

		IsProfilePicture bool
		IsFeatured       bool
		Tags             []string

		CreatedAt time.Time
	}
	MediaList []*Media
)

// scanDest lists the columns of mediaColumns in order.
func (m *Media) scanDest() []any {
	return []any{
		&m.ID,
		&m.OwnerID,

		&m.Title,
		&m.Description,
		&m.MediaType,

		&m.StorageURL,
		&m.ThumbnailURL,

		&m.FileSizeBytes,
		&m.MimeType,

		&m.IsProfilePicture,
		&m.IsFeatured,
		&m.Tags,

		&m.CreatedAt,
	}
}
