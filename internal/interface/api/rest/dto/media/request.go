package media

import "media-portfolio-api/internal/domain/upload"

// UploadRequest holds the non-file fields of a multipart upload. Tags may be
// sent repeated, comma separated, or both.
type UploadRequest struct {
	Title       string   `form:"title" binding:"max=200"`
	Description string   `form:"description" binding:"max=2000"`
	Tags        []string `form:"tags"`
	IsFeatured  bool     `form:"is_featured"`
	BatchID     string   `form:"batch_id"`
}

func ToDomainBatchMetadata(r UploadRequest, tags []string) upload.BatchMetadata {
	return upload.BatchMetadata{
		Title:       r.Title,
		Description: r.Description,
		Tags:        tags,
		IsFeatured:  r.IsFeatured,
	}
}
