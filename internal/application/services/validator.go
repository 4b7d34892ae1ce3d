package services

import (
	"strings"

	"media-portfolio-api/internal/domain/media"
	"media-portfolio-api/internal/domain/upload"
)

var allowedMIMEs = map[string]media.Type{
	"image/jpeg":      media.TypeImage,
	"image/jpg":       media.TypeImage,
	"image/png":       media.TypeImage,
	"image/gif":       media.TypeImage,
	"image/webp":      media.TypeImage,
	"video/mp4":       media.TypeVideo,
	"video/mov":       media.TypeVideo,
	"video/webm":      media.TypeVideo,
	"video/avi":       media.TypeVideo,
	"video/quicktime": media.TypeVideo,
}

type (
	Limits struct {
		MaxImages    int
		MaxVideos    int
		MaxFileBytes int64
	}

	FileInfo struct {
		Name     string
		Size     int64
		MimeType string
	}

	Verdict struct {
		Accepted  bool
		MediaType media.Type
		Reason    upload.Reason
	}
)

func DefaultLimits() Limits {
	return Limits{MaxImages: 10, MaxVideos: 4, MaxFileBytes: 50 << 20}
}

func (l Limits) Ceiling() media.Counters {
	return media.Counters{Images: l.MaxImages, Videos: l.MaxVideos}
}

// Validate classifies one candidate. pending holds files already accepted
// earlier in the same batch that have not been persisted yet.
func Validate(f FileInfo, current, pending media.Counters, limits Limits) Verdict {
	t, ok := MediaTypeOf(f.MimeType)
	if !ok {
		return Verdict{Reason: upload.ReasonUnsupportedType}
	}
	if f.Size > limits.MaxFileBytes {
		return Verdict{MediaType: t, Reason: upload.ReasonTooLarge}
	}
	if f.Size <= 0 {
		return Verdict{MediaType: t, Reason: upload.ReasonEmptyFile}
	}
	if current.Of(t)+pending.Of(t)+1 > limits.Ceiling().Of(t) {
		return Verdict{MediaType: t, Reason: upload.ReasonQuotaExceeded}
	}

	return Verdict{Accepted: true, MediaType: t}
}

// MediaTypeOf maps an allow-listed MIME type to its media type. Parameters
// such as "; charset=binary" are ignored.
func MediaTypeOf(mimeType string) (media.Type, bool) {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	t, ok := allowedMIMEs[mt]
	return t, ok
}
