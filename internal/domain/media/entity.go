package media

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeImage Type = "image"
	TypeVideo Type = "video"
)

type (
	ID      = uuid.UUID
	OwnerID = uuid.UUID

	Asset struct {
		ID      ID
		OwnerID OwnerID

		Title       string
		Description string
		MediaType   Type

		StorageURL   string
		ThumbnailURL *string

		FileSizeBytes int64
		MimeType      string

		IsProfilePicture bool
		IsFeatured       bool
		Tags             []string

		CreatedAt time.Time
	}
	Assets []*Asset

	// Draft is an asset that has a stored blob but no row yet.
	Draft struct {
		OwnerID       OwnerID
		Title         string
		Description   string
		MediaType     Type
		StorageURL    string
		ThumbnailURL  *string
		FileSizeBytes int64
		MimeType      string
		IsFeatured    bool
		Tags          []string
	}

	// Patch fields left nil keep their stored value.
	Patch struct {
		IsFeatured       *bool
		IsProfilePicture *bool
	}

	Counters struct {
		Images int `json:"images"`
		Videos int `json:"videos"`
	}
)

func (t Type) Valid() bool { return t == TypeImage || t == TypeVideo }

// BlobURLs lists every stored object the asset points at.
func (a *Asset) BlobURLs() []string {
	urls := []string{a.StorageURL}
	if a.ThumbnailURL != nil && *a.ThumbnailURL != "" {
		urls = append(urls, *a.ThumbnailURL)
	}
	return urls
}

func (c Counters) Of(t Type) int {
	switch t {
	case TypeImage:
		return c.Images
	case TypeVideo:
		return c.Videos
	}
	return 0
}

// Add returns a copy of c with n added to the counter of type t.
func (c Counters) Add(t Type, n int) Counters {
	switch t {
	case TypeImage:
		c.Images += n
	case TypeVideo:
		c.Videos += n
	}
	return c
}

func (c Counters) Plus(o Counters) Counters {
	return Counters{Images: c.Images + o.Images, Videos: c.Videos + o.Videos}
}

// CountAssets derives counters from a list of persisted assets.
func CountAssets(assets Assets) Counters {
	var c Counters
	for _, a := range assets {
		c = c.Add(a.MediaType, 1)
	}
	return c
}
