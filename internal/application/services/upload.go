package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"media-portfolio-api/internal/application/ports"
	"media-portfolio-api/internal/domain/media"
	"media-portfolio-api/internal/domain/upload"
	"media-portfolio-api/internal/infrastructure/mq"
	mediadto "media-portfolio-api/internal/interface/api/rest/dto/media"
	"media-portfolio-api/pkg/batchid"
)

const maxUploadConcurrency = 3

type UploadOptions struct {
	// Concurrency is the number of files uploading at once, 1..3.
	Concurrency          int
	ThumbnailPlaceholder string
}

type UploadService struct {
	blobs      ports.BlobStore
	repo       media.Repository
	quota      *QuotaTracker
	statuses   ports.BatchStatusStore
	events     ports.EventPublisher
	logger     *zap.Logger
	mCounter   *prometheus.CounterVec
	blobTiming *prometheus.HistogramVec
	opts       UploadOptions

	mu   sync.Mutex
	runs map[string]*batchRun
}

func NewUploadService(
	blobs ports.BlobStore,
	repo media.Repository,
	quota *QuotaTracker,
	statuses ports.BatchStatusStore,
	events ports.EventPublisher,
	logger *zap.Logger,
	mCounter *prometheus.CounterVec,
	blobTiming *prometheus.HistogramVec,
	opts UploadOptions,
) ports.UploadService {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Concurrency > maxUploadConcurrency {
		opts.Concurrency = maxUploadConcurrency
	}

	return &UploadService{
		blobs:      blobs,
		repo:       repo,
		quota:      quota,
		statuses:   statuses,
		events:     events,
		logger:     logger,
		mCounter:   mCounter,
		blobTiming: blobTiming,
		opts:       opts,
		runs:       make(map[string]*batchRun),
	}
}

// UploadBatch validates every candidate in submission order, then uploads the
// accepted ones. Rejections and per-file failures are part of the result; an
// error is returned only when the batch could not run to the end.
func (us *UploadService) UploadBatch(
	ctx context.Context,
	ownerID media.OwnerID,
	batchID string,
	candidates []upload.Candidate,
	meta upload.BatchMetadata,
) (*upload.BatchResult, error) {
	if len(candidates) == 0 {
		return nil, ErrEmptyBatch
	}
	if batchID == "" {
		batchID = batchid.New()
	}

	run, err := us.register(ctx, batchID, ownerID, candidates)
	if err != nil {
		return nil, err
	}
	defer us.unregister(batchID)

	us.save(ctx, run)

	if _, err = us.quota.Load(ctx, ownerID); err != nil {
		us.logger.Error("QuotaTracker.Load() error", zap.Error(err), zap.String("batch_id", batchID))
		run.abort(err)
		return us.finish(ctx, run), fmt.Errorf("%w: %w", ErrBatchAborted, err)
	}

	admitted := us.admit(ctx, run, candidates)
	us.save(ctx, run)

	us.dispatch(ctx, run, admitted, meta)

	res := us.finish(ctx, run)
	if abortErr := run.aborted(); abortErr != nil {
		return res, fmt.Errorf("%w: %w", ErrBatchAborted, abortErr)
	}

	us.logger.Info("batch finished",
		zap.String("batch_id", batchID),
		zap.Stringer("owner_id", ownerID),
		zap.Int("successes", len(res.Successes)),
		zap.Int("failures", len(res.Failures)),
	)

	return res, nil
}

// admit runs the validator over the whole batch before anything is uploaded,
// so files accepted earlier in the batch count against the quota of later ones.
func (us *UploadService) admit(ctx context.Context, run *batchRun, candidates []upload.Candidate) []*fileTask {
	admitted := make([]*fileTask, 0, len(candidates))

	for i, c := range candidates {
		t := &fileTask{run: run, index: i, candidate: c}

		info := FileInfo{Name: c.Name, Size: c.Size, MimeType: c.MimeType}
		if needsSniff(info.MimeType) {
			mt, err := sniff(c)
			if err != nil {
				us.logger.Warn("mime sniff failed", zap.Error(err), zap.String("file", c.Name))
			} else {
				info.MimeType = mt
			}
		}

		v, err := us.quota.Reserve(ctx, run.ownerID, info)
		if err != nil {
			// the owner is already seeded, so this only happens if the
			// tracker was reset underneath us
			t.classify(info, Verdict{})
			us.rejectTask(t, upload.ReasonAborted, err)
			continue
		}
		t.classify(info, v)

		if !v.Accepted {
			us.rejectTask(t, v.Reason, nil)
			us.incCounter("media_upload_rejected_" + string(v.Reason))
			continue
		}
		admitted = append(admitted, t)
	}

	return admitted
}

func (us *UploadService) dispatch(ctx context.Context, run *batchRun, admitted []*fileTask, meta upload.BatchMetadata) {
	// files that already started are never interrupted
	detached := context.WithoutCancel(ctx)

	sem := semaphore.NewWeighted(int64(us.opts.Concurrency))
	g := new(errgroup.Group)

	for _, t := range admitted {
		// a slot is taken before the stop check, so a cancel or abort raised
		// by a running file is seen by the next one
		if err := sem.Acquire(detached, 1); err != nil {
			break
		}

		if reason := run.stopReason(ctx); reason != "" {
			sem.Release(1)
			us.quota.Release(run.ownerID, t.mediaType)
			us.rejectTask(t, reason, nil)
			continue
		}

		g.Go(func() error {
			defer sem.Release(1)
			if err := us.process(detached, run, t, meta); err != nil {
				run.abort(err)
			}
			return nil
		})
	}

	_ = g.Wait()
}

// process drives one accepted file to a terminal state. The returned error is
// non-nil only when a gateway is unreachable and the batch must stop.
func (us *UploadService) process(ctx context.Context, run *batchRun, t *fileTask, meta upload.BatchMetadata) error {
	if err := t.start(); err != nil {
		us.logger.Error("fileTask.start() error", zap.Error(err))
		return nil
	}
	us.save(ctx, run)

	url, err := us.transfer(ctx, run.ownerID, t)
	if err != nil {
		us.logger.Error("BlobStore.Put() error",
			zap.Error(err),
			zap.String("batch_id", run.id()),
			zap.String("file", t.candidate.Name),
		)
		us.quota.Release(run.ownerID, t.mediaType)
		us.failTask(ctx, t, upload.ReasonTransferFailed, err)
		us.incCounter("media_upload_transfer_failed")

		if errors.Is(err, media.ErrUnavailable) {
			return err
		}
		return nil
	}

	asset, err := us.repo.CreateMedia(ctx, us.draft(run.ownerID, t, url, meta))
	if err == nil && asset == nil {
		err = errors.New("metadata store returned no row")
	}
	if err != nil {
		// the blob stays behind; the reconciliation consumer removes it
		us.logger.Error("Repository.CreateMedia() error",
			zap.Error(err),
			zap.String("batch_id", run.id()),
			zap.String("storage_url", url),
		)
		us.quota.Release(run.ownerID, t.mediaType)
		us.failTask(ctx, t, upload.ReasonPersistenceFailed, err)
		us.incCounter("media_upload_persistence_failed")

		e := mq.NewEvent(mq.RoutingBlobOrphaned, run.ownerID.String(), "")
		e.BlobURLs = []string{url}
		e.Reason = string(upload.ReasonPersistenceFailed)
		us.events.Publish(e)

		if errors.Is(err, media.ErrUnavailable) {
			return err
		}
		return nil
	}

	us.quota.Commit(run.ownerID, t.mediaType)
	if err = t.succeed(asset); err != nil {
		us.logger.Error("fileTask.succeed() error", zap.Error(err))
	}
	us.save(ctx, run)
	us.incCounter("media_uploaded_total")

	e := mq.NewEvent(mq.RoutingMediaUploaded, run.ownerID.String(), asset.ID.String())
	payload := mediadto.ToResponseMedia(*asset)
	e.Payload = &payload
	us.events.Publish(e)

	return nil
}

func (us *UploadService) transfer(ctx context.Context, ownerID media.OwnerID, t *fileTask) (string, error) {
	rc, err := t.candidate.Open()
	if err != nil {
		return "", fmt.Errorf("open %q: %w", t.candidate.Name, err)
	}
	defer rc.Close()

	key := storageKey(ownerID, t.mediaType, t.candidate.Name, t.info.MimeType, time.Now())
	body := &progressReader{r: rc, fn: t.progress}

	start := time.Now()
	url, err := us.blobs.Put(ctx, key, body, t.info.Size, t.info.MimeType)
	us.observeBlob("put", err, start)
	if err != nil {
		return "", err
	}
	if url == "" {
		return "", errors.New("blob store returned an empty url")
	}

	return url, nil
}

func (us *UploadService) draft(ownerID media.OwnerID, t *fileTask, url string, meta upload.BatchMetadata) *media.Draft {
	title := strings.TrimSpace(meta.Title)
	if title == "" {
		title = titleFromFileName(t.candidate.Name)
	}

	var thumb *string
	if t.mediaType == media.TypeVideo && us.opts.ThumbnailPlaceholder != "" {
		p := us.opts.ThumbnailPlaceholder
		thumb = &p
	}

	tags := make([]string, len(meta.Tags))
	copy(tags, meta.Tags)

	return &media.Draft{
		OwnerID:       ownerID,
		Title:         title,
		Description:   meta.Description,
		MediaType:     t.mediaType,
		StorageURL:    url,
		ThumbnailURL:  thumb,
		FileSizeBytes: t.info.Size,
		MimeType:      t.info.MimeType,
		IsFeatured:    meta.IsFeatured,
		Tags:          tags,
	}
}

func (us *UploadService) Status(ctx context.Context, ownerID media.OwnerID, batchID string) (*upload.BatchStatus, error) {
	us.mu.Lock()
	run, ok := us.runs[batchID]
	us.mu.Unlock()

	if ok {
		if run.ownerID != ownerID {
			return nil, ErrBatchNotFound
		}
		return run.snapshot(), nil
	}

	st, err := us.statuses.FetchBatchStatus(ctx, batchID)
	if err != nil {
		us.logger.Error("BatchStatusStore.FetchBatchStatus() error", zap.Error(err), zap.String("batch_id", batchID))
		return nil, err
	}
	if st == nil || st.OwnerID != ownerID {
		return nil, ErrBatchNotFound
	}

	return st, nil
}

// Cancel stops a running batch before its next file starts. It reports
// whether a running batch of the owner was found.
func (us *UploadService) Cancel(ownerID media.OwnerID, batchID string) bool {
	us.mu.Lock()
	run, ok := us.runs[batchID]
	us.mu.Unlock()

	if !ok || run.ownerID != ownerID {
		return false
	}
	run.cancel()
	us.logger.Info("batch cancel requested", zap.String("batch_id", batchID))

	return true
}

func (us *UploadService) register(
	ctx context.Context,
	batchID string,
	ownerID media.OwnerID,
	candidates []upload.Candidate,
) (*batchRun, error) {
	prev, err := us.statuses.FetchBatchStatus(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if prev != nil {
		return nil, ErrBatchExists
	}

	us.mu.Lock()
	defer us.mu.Unlock()

	if _, ok := us.runs[batchID]; ok {
		return nil, ErrBatchExists
	}
	run := newBatchRun(batchID, ownerID, candidates)
	us.runs[batchID] = run

	return run, nil
}

func (us *UploadService) unregister(batchID string) {
	us.mu.Lock()
	delete(us.runs, batchID)
	us.mu.Unlock()
}

func (us *UploadService) finish(ctx context.Context, run *batchRun) *upload.BatchResult {
	res := run.finish()
	us.save(context.WithoutCancel(ctx), run)
	return res
}

// save is best effort: a lost snapshot only affects pollers.
func (us *UploadService) save(ctx context.Context, run *batchRun) {
	if err := us.statuses.SaveBatchStatus(ctx, run.snapshot()); err != nil {
		us.logger.Warn("BatchStatusStore.SaveBatchStatus() error", zap.Error(err), zap.String("batch_id", run.id()))
	}
}

func (us *UploadService) rejectTask(t *fileTask, reason upload.Reason, err error) {
	if ferr := t.fail(reason, err); ferr != nil {
		us.logger.Error("fileTask.fail() error", zap.Error(ferr))
	}
}

func (us *UploadService) failTask(ctx context.Context, t *fileTask, reason upload.Reason, err error) {
	us.rejectTask(t, reason, err)
	us.save(ctx, t.run)
}

func (us *UploadService) incCounter(label string) {
	if us.mCounter != nil {
		us.mCounter.WithLabelValues(label).Inc()
	}
}

func (us *UploadService) observeBlob(op string, err error, start time.Time) {
	if us.blobTiming == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	us.blobTiming.WithLabelValues(op, status).Observe(time.Since(start).Seconds())
}

func needsSniff(mimeType string) bool {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	return mt == "" || strings.HasPrefix(mt, "application/octet-stream")
}

func sniff(c upload.Candidate) (string, error) {
	if c.Open == nil {
		return "", errors.New("candidate has no content")
	}
	rc, err := c.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	m, err := mimetype.DetectReader(rc)
	if err != nil {
		return "", err
	}
	return m.String(), nil
}
