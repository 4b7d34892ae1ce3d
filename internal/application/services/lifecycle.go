package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"media-portfolio-api/internal/application/ports"
	"media-portfolio-api/internal/domain/media"
	"media-portfolio-api/internal/infrastructure/mq"
	mediadto "media-portfolio-api/internal/interface/api/rest/dto/media"
)

type LifecycleService struct {
	repo                 media.Repository
	blobs                ports.BlobStore
	quota                *QuotaTracker
	events               ports.EventPublisher
	logger               *zap.Logger
	mCounter             *prometheus.CounterVec
	blobTiming           *prometheus.HistogramVec
	thumbnailPlaceholder string
}

func NewLifecycleService(
	repo media.Repository,
	blobs ports.BlobStore,
	quota *QuotaTracker,
	events ports.EventPublisher,
	logger *zap.Logger,
	mCounter *prometheus.CounterVec,
	blobTiming *prometheus.HistogramVec,
	thumbnailPlaceholder string,
) ports.LifecycleService {
	return &LifecycleService{
		repo:                 repo,
		blobs:                blobs,
		quota:                quota,
		events:               events,
		logger:               logger,
		mCounter:             mCounter,
		blobTiming:           blobTiming,
		thumbnailPlaceholder: thumbnailPlaceholder,
	}
}

func (ls *LifecycleService) ListMedia(ctx context.Context, ownerID media.OwnerID) (media.Assets, error) {
	assets, err := ls.repo.FetchMediaByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	return assets, nil
}

func (ls *LifecycleService) Quota(ctx context.Context, ownerID media.OwnerID) (*ports.QuotaView, error) {
	used, err := ls.quota.Load(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	return &ports.QuotaView{
		Used:   used,
		Limits: ls.quota.Limits().Ceiling(),
	}, nil
}

// SetProfilePicture clears the current profile picture of the owner, then
// flags id. If clearing fails the target is left untouched, so a failure can
// leave the owner with no profile picture but never with two.
func (ls *LifecycleService) SetProfilePicture(ctx context.Context, ownerID media.OwnerID, id media.ID) error {
	a, err := ls.fetch(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if a.MediaType != media.TypeImage {
		return ErrNotAnImage
	}
	if a.IsProfilePicture {
		return nil
	}

	if err = ls.repo.ClearProfilePicture(ctx, ownerID); err != nil {
		ls.logger.Error("Repository.ClearProfilePicture() error", zap.Error(err), zap.Stringer("owner_id", ownerID))
		ls.incCounter("media_profile_picture_failed")
		return fmt.Errorf("%w: clear profile picture: %w", ErrMetadataWriteFailed, err)
	}

	flag := true
	updated, err := ls.repo.UpdateMedia(ctx, ownerID, id, media.Patch{IsProfilePicture: &flag})
	if errors.Is(err, media.ErrConflict) {
		ls.logger.Warn("profile picture set concurrently", zap.Error(err), zap.Stringer("media_id", id))
		ls.incCounter("media_profile_picture_conflict")
		return fmt.Errorf("set profile picture: %w", err)
	}
	if err != nil {
		ls.logger.Error("Repository.UpdateMedia() error", zap.Error(err), zap.Stringer("media_id", id))
		ls.incCounter("media_profile_picture_failed")
		return fmt.Errorf("%w: set profile picture: %w", ErrMetadataWriteFailed, err)
	}
	if updated == nil {
		// deleted between the read and the write
		return media.ErrNotFound
	}

	ls.incCounter("media_profile_picture_set")
	ls.publishUpdated(ownerID, updated)

	return nil
}

func (ls *LifecycleService) ToggleFeatured(ctx context.Context, ownerID media.OwnerID, id media.ID) (*media.Asset, error) {
	a, err := ls.fetch(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	featured := !a.IsFeatured
	updated, err := ls.repo.UpdateMedia(ctx, ownerID, id, media.Patch{IsFeatured: &featured})
	if err != nil {
		ls.logger.Error("Repository.UpdateMedia() error", zap.Error(err), zap.Stringer("media_id", id))
		return nil, fmt.Errorf("%w: toggle featured: %w", ErrMetadataWriteFailed, err)
	}
	if updated == nil {
		return nil, media.ErrNotFound
	}

	ls.publishUpdated(ownerID, updated)

	return updated, nil
}

// DeleteMedia removes the blobs of an asset and then its row. Blob failures
// do not stop the row delete; they come back as warnings and are queued for
// reconciliation.
func (ls *LifecycleService) DeleteMedia(ctx context.Context, ownerID media.OwnerID, id media.ID) (*ports.DeleteReport, error) {
	a, err := ls.fetch(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	report := &ports.DeleteReport{Asset: a}
	var orphaned []string

	for _, url := range a.BlobURLs() {
		if url == ls.thumbnailPlaceholder {
			continue
		}

		start := time.Now()
		err := ls.blobs.Delete(ctx, url)
		ls.observeBlob("delete", err, start)
		if err != nil {
			ls.logger.Warn("BlobStore.Delete() error",
				zap.Error(err),
				zap.Stringer("media_id", id),
				zap.String("url", url),
			)
			ls.incCounter("media_blob_delete_failed")
			report.Warnings = append(report.Warnings, ports.ConsistencyWarning{MediaID: id, URL: url, Err: err})
			orphaned = append(orphaned, url)
		}
	}

	ok, err := ls.repo.DeleteMedia(ctx, ownerID, id)
	if err != nil {
		ls.logger.Error("Repository.DeleteMedia() error", zap.Error(err), zap.Stringer("media_id", id))
		return nil, fmt.Errorf("%w: delete media: %w", ErrMetadataWriteFailed, err)
	}
	if !ok {
		return nil, media.ErrNotFound
	}

	ls.quota.Decrement(ownerID, a.MediaType)
	ls.incCounter("media_deleted_total")

	if len(orphaned) > 0 {
		e := mq.NewEvent(mq.RoutingBlobOrphaned, ownerID.String(), id.String())
		e.BlobURLs = orphaned
		e.Reason = "blob_delete_failed"
		ls.events.Publish(e)
	}
	ls.events.Publish(mq.NewEvent(mq.RoutingMediaDeleted, ownerID.String(), id.String()))

	return report, nil
}

func (ls *LifecycleService) fetch(ctx context.Context, ownerID media.OwnerID, id media.ID) (*media.Asset, error) {
	a, err := ls.repo.FetchMediaByID(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, media.ErrNotFound
	}

	return a, nil
}

func (ls *LifecycleService) publishUpdated(ownerID media.OwnerID, a *media.Asset) {
	e := mq.NewEvent(mq.RoutingMediaUpdated, ownerID.String(), a.ID.String())
	payload := mediadto.ToResponseMedia(*a)
	e.Payload = &payload
	ls.events.Publish(e)
}

func (ls *LifecycleService) incCounter(label string) {
	if ls.mCounter != nil {
		ls.mCounter.WithLabelValues(label).Inc()
	}
}

func (ls *LifecycleService) observeBlob(op string, err error, start time.Time) {
	if ls.blobTiming == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	ls.blobTiming.WithLabelValues(op, status).Observe(time.Since(start).Seconds())
}
