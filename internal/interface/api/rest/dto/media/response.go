package media

import (
	"time"

	"github.com/google/uuid"
)

type (
	Media struct {
		ID               uuid.UUID `json:"id"`
		Title            string    `json:"title"`
		Description      string    `json:"description"`
		MediaType        string    `json:"media_type"`
		StorageURL       string    `json:"storage_url"`
		ThumbnailURL     *string   `json:"thumbnail_url,omitempty"`
		FileSizeBytes    int64     `json:"file_size_bytes"`
		MimeType         string    `json:"mime_type"`
		IsProfilePicture bool      `json:"is_profile_picture"`
		IsFeatured       bool      `json:"is_featured"`
		Tags             []string  `json:"tags"`
		CreatedAt        time.Time `json:"created_at"`
	}
	MediaList    []Media
	ResponseData struct {
		Data MediaList `json:"data"`
	}

	Failure struct {
		Index  int    `json:"index"`
		Name   string `json:"name"`
		Reason string `json:"reason"`
		Kind   string `json:"kind"`
		Error  string `json:"error,omitempty"`
	}
	BatchResult struct {
		BatchID      string    `json:"batch_id"`
		SuccessCount int       `json:"success_count"`
		FailureCount int       `json:"failure_count"`
		Successes    MediaList `json:"successes"`
		Failures     []Failure `json:"failures"`
	}

	FileStatus struct {
		Index     int     `json:"index"`
		Name      string  `json:"name"`
		Size      int64   `json:"size"`
		MediaType string  `json:"media_type,omitempty"`
		State     string  `json:"state"`
		Percent   float64 `json:"percent"`
		Reason    string  `json:"reason,omitempty"`
		Error     string  `json:"error,omitempty"`
		Media     *Media  `json:"media,omitempty"`
	}
	BatchStatus struct {
		BatchID    string       `json:"batch_id"`
		Total      int          `json:"total"`
		Processed  int          `json:"processed"`
		Percent    float64      `json:"percent"`
		Cancelled  bool         `json:"cancelled"`
		Done       bool         `json:"done"`
		Files      []FileStatus `json:"files"`
		StartedAt  time.Time    `json:"started_at"`
		FinishedAt *time.Time   `json:"finished_at,omitempty"`
	}

	Counters struct {
		Images int `json:"images"`
		Videos int `json:"videos"`
	}
	Quota struct {
		Used   Counters `json:"used"`
		Limits Counters `json:"limits"`
	}

	DeleteResult struct {
		ID       uuid.UUID `json:"id"`
		Warnings []string  `json:"warnings,omitempty"`
	}
)
