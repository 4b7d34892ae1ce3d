package media

import (
	"media-portfolio-api/internal/domain/media"
	"media-portfolio-api/internal/domain/upload"
)

func ToResponseMedia(mDomain media.Asset) Media {
	tags := mDomain.Tags
	if tags == nil {
		tags = []string{}
	}

	return Media{
		ID:               mDomain.ID,
		Title:            mDomain.Title,
		Description:      mDomain.Description,
		MediaType:        string(mDomain.MediaType),
		StorageURL:       mDomain.StorageURL,
		ThumbnailURL:     mDomain.ThumbnailURL,
		FileSizeBytes:    mDomain.FileSizeBytes,
		MimeType:         mDomain.MimeType,
		IsProfilePicture: mDomain.IsProfilePicture,
		IsFeatured:       mDomain.IsFeatured,
		Tags:             tags,
		CreatedAt:        mDomain.CreatedAt,
	}
}

func ToResponseMediaList(mDomain media.Assets) MediaList {
	ms := make(MediaList, len(mDomain))
	for idx, m := range mDomain {
		ms[idx] = ToResponseMedia(*m)
	}

	return ms
}

func ToResponseBatchResult(r upload.BatchResult) BatchResult {
	failures := make([]Failure, len(r.Failures))
	for idx, f := range r.Failures {
		failures[idx] = Failure{
			Index:  f.Index,
			Name:   f.Name,
			Reason: string(f.Reason),
			Kind:   string(f.Reason.Kind()),
			Error:  f.Error,
		}
	}

	return BatchResult{
		BatchID:      r.BatchID,
		SuccessCount: len(r.Successes),
		FailureCount: len(r.Failures),
		Successes:    ToResponseMediaList(r.Successes),
		Failures:     failures,
	}
}

func ToResponseBatchStatus(s upload.BatchStatus) BatchStatus {
	files := make([]FileStatus, len(s.Files))
	for idx, f := range s.Files {
		fs := FileStatus{
			Index:     f.Index,
			Name:      f.Name,
			Size:      f.Size,
			MediaType: string(f.MediaType),
			State:     string(f.State),
			Percent:   f.Percent,
			Reason:    string(f.Reason),
			Error:     f.Error,
		}
		if f.Asset != nil {
			m := ToResponseMedia(*f.Asset)
			fs.Media = &m
		}
		files[idx] = fs
	}

	return BatchStatus{
		BatchID:    s.ID,
		Total:      s.Total,
		Processed:  s.Processed,
		Percent:    s.Percent,
		Cancelled:  s.Cancelled,
		Done:       s.Done,
		Files:      files,
		StartedAt:  s.StartedAt,
		FinishedAt: s.FinishedAt,
	}
}

func ToResponseQuota(used, limits media.Counters) Quota {
	return Quota{
		Used:   Counters{Images: used.Images, Videos: used.Videos},
		Limits: Counters{Images: limits.Images, Videos: limits.Videos},
	}
}
