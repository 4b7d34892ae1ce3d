package media

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	domain "media-portfolio-api/internal/domain/media"
	"media-portfolio-api/internal/infrastructure/db/postgres"
)

// ErrProfilePictureTaken is returned when the one-profile-picture index
// rejects an update, i.e. another request set one concurrently.
var ErrProfilePictureTaken = fmt.Errorf("%w: owner already has a profile picture", domain.ErrConflict)

// DB is the subset of *pgxpool.Pool the repository uses.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type Repository struct {
	db DB
}

func NewRepository(db DB) domain.Repository {
	return &Repository{db: db}
}

func (r *Repository) FetchMediaByOwner(ctx context.Context, ownerID domain.OwnerID) (domain.Assets, error) {
	rows, err := r.db.Query(ctx, SelectMediaByOwner, ownerID)
	if err != nil {
		return nil, postgres.Classify(err)
	}
	defer rows.Close()

	ms := MediaList{}
	for rows.Next() {
		m := new(Media)
		if err = rows.Scan(m.scanDest()...); err != nil {
			return nil, err
		}

		ms = append(ms, m)
	}
	if err = rows.Err(); err != nil {
		return nil, postgres.Classify(err)
	}

	return fromDBModels(&ms), nil
}

func (r *Repository) FetchMediaByID(ctx context.Context, ownerID domain.OwnerID, id domain.ID) (*domain.Asset, error) {
	m := new(Media)
	err := r.db.QueryRow(ctx, SelectMediaByID, id, ownerID).Scan(m.scanDest()...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, postgres.Classify(err)
	}

	return fromDBModel(m), nil
}

func (r *Repository) CreateMedia(ctx context.Context, req *domain.Draft) (*domain.Asset, error) {
	if req.StorageURL == "" {
		return nil, fmt.Errorf("create media: empty storage url")
	}

	tags := req.Tags
	if tags == nil {
		tags = []string{}
	}

	m := new(Media)
	err := r.db.QueryRow(
		ctx,
		InsertMedia,
		req.OwnerID, req.Title, req.Description, string(req.MediaType), req.StorageURL,
		req.ThumbnailURL, req.FileSizeBytes, req.MimeType, req.IsFeatured, tags,
	).Scan(m.scanDest()...)
	if err != nil {
		return nil, postgres.Classify(err)
	}

	return fromDBModel(m), nil
}

func (r *Repository) UpdateMedia(
	ctx context.Context,
	ownerID domain.OwnerID,
	id domain.ID,
	patch domain.Patch,
) (*domain.Asset, error) {
	m := new(Media)
	err := r.db.QueryRow(ctx, UpdateMediaByID, id, ownerID, patch.IsFeatured, patch.IsProfilePicture).
		Scan(m.scanDest()...)
	if err != nil {
		if postgres.IsPgUniqueViolation(err) {
			return nil, ErrProfilePictureTaken
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, postgres.Classify(err)
	}

	return fromDBModel(m), nil
}

func (r *Repository) ClearProfilePicture(ctx context.Context, ownerID domain.OwnerID) error {
	if _, err := r.db.Exec(ctx, ClearProfilePictureByOwner, ownerID); err != nil {
		return postgres.Classify(err)
	}

	return nil
}

func (r *Repository) DeleteMedia(ctx context.Context, ownerID domain.OwnerID, id domain.ID) (bool, error) {
	tag, err := r.db.Exec(ctx, DeleteMediaByID, id, ownerID)
	if err != nil {
		return false, postgres.Classify(err)
	}

	return tag.RowsAffected() > 0, nil
}

func (r *Repository) CountMediaByType(ctx context.Context, ownerID domain.OwnerID) (domain.Counters, error) {
	rows, err := r.db.Query(ctx, CountMediaByType, ownerID)
	if err != nil {
		return domain.Counters{}, postgres.Classify(err)
	}
	defer rows.Close()

	var c domain.Counters
	for rows.Next() {
		var (
			mediaType string
			n         int64
		)
		if err = rows.Scan(&mediaType, &n); err != nil {
			return domain.Counters{}, err
		}
		c = c.Add(domain.Type(mediaType), int(n))
	}
	if err = rows.Err(); err != nil {
		return domain.Counters{}, postgres.Classify(err)
	}

	return c, nil
}

func (r *Repository) BlobReferenced(ctx context.Context, url string) (bool, error) {
	var referenced bool
	if err := r.db.QueryRow(ctx, BlobURLReferenced, url).Scan(&referenced); err != nil {
		return false, postgres.Classify(err)
	}

	return referenced, nil
}
