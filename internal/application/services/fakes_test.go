package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"media-portfolio-api/internal/domain/media"
	"media-portfolio-api/internal/domain/upload"
	"media-portfolio-api/internal/infrastructure/mq"
)

// FakeRepository is an in-memory media.Repository. The *Func hooks run
// first; a non-nil error from a hook is returned instead of touching rows.
type FakeRepository struct {
	mu   sync.Mutex
	rows map[media.ID]*media.Asset
	seq  int

	CreateMediaFunc         func(d *media.Draft) error
	UpdateMediaFunc         func(id media.ID, patch media.Patch) error
	ClearProfilePictureFunc func(ownerID media.OwnerID) error
	DeleteMediaFunc         func(id media.ID) error
	CountMediaByTypeFunc    func(ownerID media.OwnerID) error

	countCalls int
}

func NewFakeRepository() *FakeRepository {
	return &FakeRepository{rows: make(map[media.ID]*media.Asset)}
}

func (f *FakeRepository) seed(ownerID media.OwnerID, t media.Type, n int) []*media.Asset {
	mimeType := "image/jpeg"
	if t == media.TypeVideo {
		mimeType = "video/mp4"
	}

	out := make([]*media.Asset, 0, n)
	for i := 0; i < n; i++ {
		a, _ := f.CreateMedia(context.Background(), &media.Draft{
			OwnerID:    ownerID,
			Title:      "seeded",
			MediaType:  t,
			StorageURL: "https://blobs.test/seed/" + uuid.NewString(),
			MimeType:   mimeType,
		})
		out = append(out, a)
	}
	return out
}

func (f *FakeRepository) CreateMedia(_ context.Context, d *media.Draft) (*media.Asset, error) {
	if f.CreateMediaFunc != nil {
		if err := f.CreateMediaFunc(d); err != nil {
			return nil, err
		}
	}
	if d.StorageURL == "" {
		return nil, errors.New("storage_url must not be empty")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.seq++
	a := &media.Asset{
		ID:            uuid.New(),
		OwnerID:       d.OwnerID,
		Title:         d.Title,
		Description:   d.Description,
		MediaType:     d.MediaType,
		StorageURL:    d.StorageURL,
		ThumbnailURL:  d.ThumbnailURL,
		FileSizeBytes: d.FileSizeBytes,
		MimeType:      d.MimeType,
		IsFeatured:    d.IsFeatured,
		Tags:          d.Tags,
		CreatedAt:     time.Unix(int64(f.seq), 0).UTC(),
	}
	f.rows[a.ID] = a
	cp := *a
	return &cp, nil
}

func (f *FakeRepository) FetchMediaByOwner(_ context.Context, ownerID media.OwnerID) (media.Assets, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := media.Assets{}
	for _, a := range f.rows {
		if a.OwnerID == ownerID {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *FakeRepository) FetchMediaByID(_ context.Context, ownerID media.OwnerID, id media.ID) (*media.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	a, ok := f.rows[id]
	if !ok || a.OwnerID != ownerID {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (f *FakeRepository) UpdateMedia(_ context.Context, ownerID media.OwnerID, id media.ID, patch media.Patch) (*media.Asset, error) {
	if f.UpdateMediaFunc != nil {
		if err := f.UpdateMediaFunc(id, patch); err != nil {
			return nil, err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	a, ok := f.rows[id]
	if !ok || a.OwnerID != ownerID {
		return nil, nil
	}
	if patch.IsFeatured != nil {
		a.IsFeatured = *patch.IsFeatured
	}
	if patch.IsProfilePicture != nil {
		a.IsProfilePicture = *patch.IsProfilePicture
	}
	cp := *a
	return &cp, nil
}

func (f *FakeRepository) ClearProfilePicture(_ context.Context, ownerID media.OwnerID) error {
	if f.ClearProfilePictureFunc != nil {
		if err := f.ClearProfilePictureFunc(ownerID); err != nil {
			return err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for _, a := range f.rows {
		if a.OwnerID == ownerID {
			a.IsProfilePicture = false
		}
	}
	return nil
}

func (f *FakeRepository) DeleteMedia(_ context.Context, ownerID media.OwnerID, id media.ID) (bool, error) {
	if f.DeleteMediaFunc != nil {
		if err := f.DeleteMediaFunc(id); err != nil {
			return false, err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	a, ok := f.rows[id]
	if !ok || a.OwnerID != ownerID {
		return false, nil
	}
	delete(f.rows, id)
	return true, nil
}

func (f *FakeRepository) CountMediaByType(_ context.Context, ownerID media.OwnerID) (media.Counters, error) {
	f.mu.Lock()
	f.countCalls++
	f.mu.Unlock()

	if f.CountMediaByTypeFunc != nil {
		if err := f.CountMediaByTypeFunc(ownerID); err != nil {
			return media.Counters{}, err
		}
	}

	assets, _ := f.FetchMediaByOwner(context.Background(), ownerID)
	return media.CountAssets(assets), nil
}

func (f *FakeRepository) BlobReferenced(_ context.Context, url string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, a := range f.rows {
		if a.StorageURL == url || (a.ThumbnailURL != nil && *a.ThumbnailURL == url) {
			return true, nil
		}
	}
	return false, nil
}

func (f *FakeRepository) profilePictures(ownerID media.OwnerID) int {
	assets, _ := f.FetchMediaByOwner(context.Background(), ownerID)
	n := 0
	for _, a := range assets {
		if a.IsProfilePicture {
			n++
		}
	}
	return n
}

type FakeBlobStore struct {
	mu      sync.Mutex
	puts    []string
	deletes []string

	PutFunc    func(ctx context.Context, key string, n int) (string, error)
	DeleteFunc func(ctx context.Context, url string) error
}

func (f *FakeBlobStore) Put(ctx context.Context, key string, body io.Reader, _ int64, _ string) (string, error) {
	if _, err := io.Copy(io.Discard, body); err != nil {
		return "", err
	}

	f.mu.Lock()
	f.puts = append(f.puts, key)
	call := len(f.puts)
	f.mu.Unlock()

	if f.PutFunc != nil {
		url, err := f.PutFunc(ctx, key, call)
		if err != nil || url != "" {
			return url, err
		}
	}
	return "https://blobs.test/" + key, nil
}

func (f *FakeBlobStore) Delete(ctx context.Context, url string) error {
	f.mu.Lock()
	f.deletes = append(f.deletes, url)
	f.mu.Unlock()

	if f.DeleteFunc != nil {
		return f.DeleteFunc(ctx, url)
	}
	return nil
}

func (f *FakeBlobStore) putCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.puts)
}

type FakePublisher struct {
	mu     sync.Mutex
	events []mq.Event
}

func (f *FakePublisher) Publish(e mq.Event) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	return true
}

func (f *FakePublisher) byAction(action string) []mq.Event {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []mq.Event
	for _, e := range f.events {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

type FakeStatusStore struct {
	mu       sync.Mutex
	statuses map[string]*upload.BatchStatus
	saves    int
}

func NewFakeStatusStore() *FakeStatusStore {
	return &FakeStatusStore{statuses: make(map[string]*upload.BatchStatus)}
}

func (f *FakeStatusStore) SaveBatchStatus(_ context.Context, s *upload.BatchStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[s.ID] = s.Clone()
	f.saves++
	return nil
}

func (f *FakeStatusStore) FetchBatchStatus(_ context.Context, batchID string) (*upload.BatchStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.statuses[batchID]
	if !ok {
		return nil, nil
	}
	return s.Clone(), nil
}

const mib = 1 << 20

// candidate declares size bytes but only streams a small body.
func candidate(name string, size int64, mimeType string) upload.Candidate {
	return contentCandidate(name, size, mimeType, bytes.Repeat([]byte{0x42}, 512))
}

func contentCandidate(name string, size int64, mimeType string, content []byte) upload.Candidate {
	return upload.Candidate{
		Name:     name,
		Size:     size,
		MimeType: mimeType,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(content)), nil
		},
	}
}
