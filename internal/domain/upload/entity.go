package upload

import (
	"io"
	"time"

	"media-portfolio-api/internal/domain/media"
)

type State string

const (
	StatePending   State = "pending"
	StateUploading State = "uploading"
	StateSuccess   State = "success"
	StateError     State = "error"
)

func (s State) Terminal() bool { return s == StateSuccess || s == StateError }

// CanTransition reports whether the per-file state machine allows s -> to.
// Pending -> Error covers candidates that never start: rejected by
// validation, cancelled, or skipped after a batch abort.
func (s State) CanTransition(to State) bool {
	switch s {
	case StatePending:
		return to == StateUploading || to == StateError
	case StateUploading:
		return to == StateSuccess || to == StateError
	}
	return false
}

type (
	Reason string
	Kind   string
)

const (
	ReasonUnsupportedType   Reason = "unsupported_type"
	ReasonTooLarge          Reason = "too_large"
	ReasonEmptyFile         Reason = "empty_file"
	ReasonQuotaExceeded     Reason = "quota_exceeded"
	ReasonTransferFailed    Reason = "transfer_failed"
	ReasonPersistenceFailed Reason = "persistence_failed"
	ReasonCancelled         Reason = "cancelled"
	ReasonAborted           Reason = "aborted"
)

const (
	KindValidation  Kind = "validation"
	KindTransfer    Kind = "transfer"
	KindPersistence Kind = "persistence"
	KindInterrupted Kind = "interrupted"
)

func (r Reason) Kind() Kind {
	switch r {
	case ReasonUnsupportedType, ReasonTooLarge, ReasonEmptyFile, ReasonQuotaExceeded:
		return KindValidation
	case ReasonTransferFailed:
		return KindTransfer
	case ReasonPersistenceFailed:
		return KindPersistence
	}
	return KindInterrupted
}

type (
	Candidate struct {
		Name     string
		Size     int64
		MimeType string
		Open     func() (io.ReadCloser, error)
	}

	// BatchMetadata is applied uniformly to every file of a batch.
	BatchMetadata struct {
		Title       string
		Description string
		Tags        []string
		IsFeatured  bool
	}

	FileStatus struct {
		Index     int          `json:"index"`
		Name      string       `json:"name"`
		Size      int64        `json:"size"`
		MimeType  string       `json:"mime_type"`
		MediaType media.Type   `json:"media_type,omitempty"`
		State     State        `json:"state"`
		Percent   float64      `json:"percent"`
		Reason    Reason       `json:"reason,omitempty"`
		Error     string       `json:"error,omitempty"`
		Asset     *media.Asset `json:"asset,omitempty"`
	}

	BatchStatus struct {
		ID         string        `json:"id"`
		OwnerID    media.OwnerID `json:"owner_id"`
		Total      int           `json:"total"`
		Processed  int           `json:"processed"`
		Percent    float64       `json:"percent"`
		Cancelled  bool          `json:"cancelled"`
		Done       bool          `json:"done"`
		Files      []FileStatus  `json:"files"`
		StartedAt  time.Time     `json:"started_at"`
		FinishedAt *time.Time    `json:"finished_at,omitempty"`
	}

	Failure struct {
		Index  int    `json:"index"`
		Name   string `json:"name"`
		Reason Reason `json:"reason"`
		Error  string `json:"error,omitempty"`
	}

	BatchResult struct {
		BatchID   string       `json:"batch_id"`
		Successes media.Assets `json:"successes"`
		Failures  []Failure    `json:"failures"`
	}
)

// Recompute refreshes the aggregate progress fields from the file slots.
func (b *BatchStatus) Recompute() {
	b.Total = len(b.Files)
	b.Processed = 0
	var sum float64
	for _, f := range b.Files {
		if f.State.Terminal() {
			b.Processed++
		}
		sum += f.Percent
	}
	b.Percent = 0
	if b.Total > 0 {
		b.Percent = sum / float64(b.Total)
	}
}

// Clone returns a deep enough copy for readers outside the batch driver.
func (b *BatchStatus) Clone() *BatchStatus {
	out := *b
	out.Files = make([]FileStatus, len(b.Files))
	copy(out.Files, b.Files)
	if b.FinishedAt != nil {
		t := *b.FinishedAt
		out.FinishedAt = &t
	}
	return &out
}
