package services

import (
	"context"
	"fmt"
	"sync"

	"media-portfolio-api/internal/domain/media"
)

// QuotaTracker keeps per-owner media counters. Counters are re-read from the
// metadata store by Load whenever the owner has no reservation outstanding,
// so every batch starts from what the store holds, including rows written by
// other replicas. While reservations are held the counters are maintained
// incrementally; a batch reserves before uploading and commits or releases
// afterwards, so concurrent batches of one owner cannot overshoot.
type QuotaTracker struct {
	repo   media.Repository
	limits Limits

	mu     sync.Mutex
	owners map[media.OwnerID]*ownerQuota
}

type ownerQuota struct {
	mu       sync.Mutex
	loaded   bool
	counts   media.Counters
	reserved media.Counters
}

func NewQuotaTracker(repo media.Repository, limits Limits) *QuotaTracker {
	return &QuotaTracker{
		repo:   repo,
		limits: limits,
		owners: make(map[media.OwnerID]*ownerQuota),
	}
}

func (q *QuotaTracker) Limits() Limits { return q.limits }

func (q *QuotaTracker) owner(ownerID media.OwnerID) *ownerQuota {
	q.mu.Lock()
	defer q.mu.Unlock()

	oq, ok := q.owners[ownerID]
	if !ok {
		oq = new(ownerQuota)
		q.owners[ownerID] = oq
	}
	return oq
}

// must hold oq.mu
func (q *QuotaTracker) ensureLoaded(ctx context.Context, ownerID media.OwnerID, oq *ownerQuota) error {
	if oq.loaded {
		return nil
	}
	return q.refresh(ctx, ownerID, oq)
}

// must hold oq.mu
func (q *QuotaTracker) refresh(ctx context.Context, ownerID media.OwnerID, oq *ownerQuota) error {
	counts, err := q.repo.CountMediaByType(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("seed quota for owner %s: %w", ownerID, err)
	}
	oq.counts = counts
	oq.loaded = true
	return nil
}

// Load returns the persisted counters of the owner. With no reservation
// outstanding they are re-read from the store; otherwise an in-flight batch
// owns them and the tracked values are returned.
func (q *QuotaTracker) Load(ctx context.Context, ownerID media.OwnerID) (media.Counters, error) {
	oq := q.owner(ownerID)
	oq.mu.Lock()
	defer oq.mu.Unlock()

	var err error
	if oq.reserved == (media.Counters{}) {
		err = q.refresh(ctx, ownerID, oq)
	} else {
		err = q.ensureLoaded(ctx, ownerID, oq)
	}
	if err != nil {
		return media.Counters{}, err
	}
	return oq.counts, nil
}

// Reserve validates f against persisted plus reserved counters and, when
// accepted, reserves a slot of the derived media type.
func (q *QuotaTracker) Reserve(ctx context.Context, ownerID media.OwnerID, f FileInfo) (Verdict, error) {
	oq := q.owner(ownerID)
	oq.mu.Lock()
	defer oq.mu.Unlock()

	if err := q.ensureLoaded(ctx, ownerID, oq); err != nil {
		return Verdict{}, err
	}

	v := Validate(f, oq.counts, oq.reserved, q.limits)
	if v.Accepted {
		oq.reserved = oq.reserved.Add(v.MediaType, 1)
	}
	return v, nil
}

// Commit turns a reservation into a persisted count.
func (q *QuotaTracker) Commit(ownerID media.OwnerID, t media.Type) {
	oq := q.owner(ownerID)
	oq.mu.Lock()
	defer oq.mu.Unlock()

	if oq.reserved.Of(t) > 0 {
		oq.reserved = oq.reserved.Add(t, -1)
	}
	oq.counts = oq.counts.Add(t, 1)
}

// Release drops a reservation whose upload did not produce an asset.
func (q *QuotaTracker) Release(ownerID media.OwnerID, t media.Type) {
	oq := q.owner(ownerID)
	oq.mu.Lock()
	defer oq.mu.Unlock()

	if oq.reserved.Of(t) > 0 {
		oq.reserved = oq.reserved.Add(t, -1)
	}
}

// Decrement accounts for a deleted asset. Owners that were never seeded are
// left alone; they are read from the store on their next Load.
func (q *QuotaTracker) Decrement(ownerID media.OwnerID, t media.Type) {
	oq := q.owner(ownerID)
	oq.mu.Lock()
	defer oq.mu.Unlock()

	if oq.loaded && oq.counts.Of(t) > 0 {
		oq.counts = oq.counts.Add(t, -1)
	}
}
