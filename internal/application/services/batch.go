package services

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"media-portfolio-api/internal/domain/media"
	"media-portfolio-api/internal/domain/upload"
)

// batchRun is the live state of one batch. Every file owns one slot of
// status.Files; workers only ever touch their own slot, under mu.
type batchRun struct {
	ownerID media.OwnerID

	mu        sync.Mutex
	status    upload.BatchStatus
	cancelled bool
	abortErr  error
}

func newBatchRun(id string, ownerID media.OwnerID, candidates []upload.Candidate) *batchRun {
	files := make([]upload.FileStatus, len(candidates))
	for i, c := range candidates {
		files[i] = upload.FileStatus{
			Index:    i,
			Name:     c.Name,
			Size:     c.Size,
			MimeType: c.MimeType,
			State:    upload.StatePending,
		}
	}

	r := &batchRun{
		ownerID: ownerID,
		status: upload.BatchStatus{
			ID:        id,
			OwnerID:   ownerID,
			Files:     files,
			StartedAt: time.Now().UTC(),
		},
	}
	r.status.Recompute()
	return r
}

func (r *batchRun) id() string { return r.status.ID }

func (r *batchRun) snapshot() *upload.BatchStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status.Clone()
}

func (r *batchRun) cancel() {
	r.mu.Lock()
	r.cancelled = true
	r.mu.Unlock()
}

func (r *batchRun) abort(err error) {
	r.mu.Lock()
	if r.abortErr == nil {
		r.abortErr = err
	}
	r.mu.Unlock()
}

func (r *batchRun) aborted() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.abortErr
}

// stopReason is checked before a pending file is started. An empty reason
// means the file may go ahead.
func (r *batchRun) stopReason(ctx context.Context) upload.Reason {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.abortErr != nil {
		return upload.ReasonAborted
	}
	if r.cancelled || ctx.Err() != nil {
		r.status.Cancelled = true
		return upload.ReasonCancelled
	}
	return ""
}

func (r *batchRun) transition(idx int, to upload.State, mutate func(f *upload.FileStatus)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	f := &r.status.Files[idx]
	if !f.State.CanTransition(to) {
		return fmt.Errorf("file %d: illegal transition %s -> %s", idx, f.State, to)
	}
	f.State = to
	switch {
	case to == upload.StateUploading:
		f.Percent = 0
	case to.Terminal():
		f.Percent = 100
	}
	if mutate != nil {
		mutate(f)
	}
	r.status.Recompute()
	return nil
}

func (r *batchRun) setPercent(idx int, pct float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f := &r.status.Files[idx]
	if f.State != upload.StateUploading {
		return
	}
	f.Percent = pct
	r.status.Recompute()
}

// finish closes the run and derives the batch result in submission order.
func (r *batchRun) finish() *upload.BatchResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	res := &upload.BatchResult{
		BatchID:   r.status.ID,
		Successes: media.Assets{},
		Failures:  []upload.Failure{},
	}
	for i := range r.status.Files {
		f := &r.status.Files[i]
		if !f.State.Terminal() {
			f.State = upload.StateError
			f.Percent = 100
			f.Reason = upload.ReasonAborted
		}
		if f.State == upload.StateSuccess && f.Asset != nil {
			res.Successes = append(res.Successes, f.Asset)
			continue
		}
		res.Failures = append(res.Failures, upload.Failure{
			Index:  f.Index,
			Name:   f.Name,
			Reason: f.Reason,
			Error:  f.Error,
		})
	}
	r.status.Done = true
	r.status.FinishedAt = &now
	r.status.Recompute()

	return res
}

// fileTask drives one candidate through Pending -> Uploading -> Success|Error.
type fileTask struct {
	run       *batchRun
	index     int
	candidate upload.Candidate
	info      FileInfo
	mediaType media.Type
}

func (t *fileTask) start() error {
	return t.run.transition(t.index, upload.StateUploading, nil)
}

func (t *fileTask) succeed(a *media.Asset) error {
	return t.run.transition(t.index, upload.StateSuccess, func(f *upload.FileStatus) {
		f.Asset = a
	})
}

func (t *fileTask) fail(reason upload.Reason, err error) error {
	return t.run.transition(t.index, upload.StateError, func(f *upload.FileStatus) {
		f.Reason = reason
		if err != nil {
			f.Error = err.Error()
		}
	})
}

// classify records the outcome of validation on the pending slot.
func (t *fileTask) classify(info FileInfo, v Verdict) {
	t.info = info
	t.mediaType = v.MediaType

	t.run.mu.Lock()
	f := &t.run.status.Files[t.index]
	f.MimeType = info.MimeType
	f.MediaType = v.MediaType
	t.run.mu.Unlock()
}

func (t *fileTask) progress(done int64) {
	if t.info.Size <= 0 {
		return
	}
	pct := float64(done) / float64(t.info.Size) * 100
	if pct > 99 {
		// 100 is reserved for the terminal state
		pct = 99
	}
	t.run.setPercent(t.index, pct)
}

type progressReader struct {
	r    io.Reader
	read int64
	fn   func(done int64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.read += int64(n)
		p.fn(p.read)
	}
	return n, err
}
