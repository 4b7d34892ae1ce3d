package media

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "media-portfolio-api/internal/domain/media"
)

var columns = []string{
	"id", "owner_id", "title", "description", "media_type", "storage_url", "thumbnail_url",
	"file_size_bytes", "mime_type", "is_profile_picture", "is_featured", "tags", "created_at",
}

func newMock(t *testing.T) (pgxmock.PgxPoolIface, domain.Repository) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	return mock, NewRepository(mock)
}

func mediaRow(id, owner uuid.UUID, mediaType string, thumb *string, profile, featured bool, created time.Time) []any {
	return []any{
		id, owner, "title", "desc", mediaType, "https://cdn.test/" + id.String(), thumb,
		int64(1024), "image/jpeg", profile, featured, []string{"a", "b"}, created,
	}
}

func TestRepository_CreateMedia(t *testing.T) {
	mock, repo := newMock(t)
	owner, id := uuid.New(), uuid.New()
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	thumb := "/static/video-placeholder.png"

	draft := &domain.Draft{
		OwnerID:       owner,
		Title:         "title",
		Description:   "desc",
		MediaType:     domain.TypeVideo,
		StorageURL:    "https://cdn.test/" + id.String(),
		ThumbnailURL:  &thumb,
		FileSizeBytes: 1024,
		MimeType:      "video/mp4",
	}

	mock.ExpectQuery("INSERT INTO media_assets").
		WithArgs(owner, "title", "desc", "video", draft.StorageURL, &thumb, int64(1024), "video/mp4", false, []string{}).
		WillReturnRows(pgxmock.NewRows(columns).AddRow(mediaRow(id, owner, "video", &thumb, false, false, created)...))

	a, err := repo.CreateMedia(context.Background(), draft)
	require.NoError(t, err)
	assert.Equal(t, id, a.ID)
	assert.Equal(t, owner, a.OwnerID)
	assert.Equal(t, domain.TypeVideo, a.MediaType)
	require.NotNil(t, a.ThumbnailURL)
	assert.Equal(t, thumb, *a.ThumbnailURL)
	assert.Equal(t, []string{"a", "b"}, a.Tags)
	assert.Equal(t, created, a.CreatedAt)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_CreateMediaRequiresStorageURL(t *testing.T) {
	mock, repo := newMock(t)

	_, err := repo.CreateMedia(context.Background(), &domain.Draft{OwnerID: uuid.New(), MediaType: domain.TypeImage})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_FetchMediaByOwner(t *testing.T) {
	mock, repo := newMock(t)
	owner := uuid.New()
	a, b := uuid.New(), uuid.New()
	now := time.Now().UTC()

	rows := pgxmock.NewRows(columns).
		AddRow(mediaRow(a, owner, "image", (*string)(nil), true, false, now)...).
		AddRow(mediaRow(b, owner, "video", (*string)(nil), false, true, now.Add(-time.Minute))...)
	mock.ExpectQuery("FROM media_assets").WithArgs(owner).WillReturnRows(rows)

	got, err := repo.FetchMediaByOwner(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, a, got[0].ID)
	assert.True(t, got[0].IsProfilePicture)
	assert.Equal(t, domain.TypeVideo, got[1].MediaType)
	assert.True(t, got[1].IsFeatured)
	assert.Nil(t, got[1].ThumbnailURL)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_FetchMediaByOwnerEmpty(t *testing.T) {
	mock, repo := newMock(t)
	owner := uuid.New()

	mock.ExpectQuery("FROM media_assets").WithArgs(owner).WillReturnRows(pgxmock.NewRows(columns))

	got, err := repo.FetchMediaByOwner(context.Background(), owner)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRepository_FetchMediaByID(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantNil bool
		wantErr error
	}{
		{name: "found"},
		{name: "missing", err: pgx.ErrNoRows, wantNil: true},
		{name: "connection lost", err: &pgconn.PgError{Code: "08006"}, wantErr: domain.ErrUnavailable},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			mock, repo := newMock(t)
			owner, id := uuid.New(), uuid.New()

			q := mock.ExpectQuery("WHERE id = \\$1 AND owner_id = \\$2").WithArgs(id, owner)
			if tt.err != nil {
				q.WillReturnError(tt.err)
			} else {
				q.WillReturnRows(pgxmock.NewRows(columns).AddRow(mediaRow(id, owner, "image", (*string)(nil), false, false, time.Now())...))
			}

			got, err := repo.FetchMediaByID(context.Background(), owner, id)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, got)
				return
			}
			assert.Equal(t, id, got.ID)
		})
	}
}

func TestRepository_UpdateMedia(t *testing.T) {
	mock, repo := newMock(t)
	owner, id := uuid.New(), uuid.New()
	flag := true

	mock.ExpectQuery("UPDATE media_assets").
		WithArgs(id, owner, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(columns).AddRow(mediaRow(id, owner, "image", (*string)(nil), false, true, time.Now())...))

	got, err := repo.UpdateMedia(context.Background(), owner, id, domain.Patch{IsFeatured: &flag})
	require.NoError(t, err)
	assert.True(t, got.IsFeatured)

	mock.ExpectQuery("UPDATE media_assets").
		WithArgs(id, owner, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err = repo.UpdateMedia(context.Background(), owner, id, domain.Patch{IsProfilePicture: &flag})
	assert.ErrorIs(t, err, ErrProfilePictureTaken)
	assert.ErrorIs(t, err, domain.ErrConflict)

	mock.ExpectQuery("UPDATE media_assets").
		WithArgs(id, owner, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(pgx.ErrNoRows)

	got, err = repo.UpdateMedia(context.Background(), owner, id, domain.Patch{IsFeatured: &flag})
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ClearProfilePicture(t *testing.T) {
	mock, repo := newMock(t)
	owner := uuid.New()

	mock.ExpectExec("SET is_profile_picture = false").WithArgs(owner).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, repo.ClearProfilePicture(context.Background(), owner))

	mock.ExpectExec("SET is_profile_picture = false").WithArgs(owner).
		WillReturnError(errors.New("syntax error"))
	err := repo.ClearProfilePicture(context.Background(), owner)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrUnavailable)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_DeleteMedia(t *testing.T) {
	mock, repo := newMock(t)
	owner, id := uuid.New(), uuid.New()

	mock.ExpectExec("DELETE FROM media_assets").WithArgs(id, owner).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	ok, err := repo.DeleteMedia(context.Background(), owner, id)
	require.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectExec("DELETE FROM media_assets").WithArgs(id, owner).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	ok, err = repo.DeleteMedia(context.Background(), owner, id)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_CountMediaByType(t *testing.T) {
	mock, repo := newMock(t)
	owner := uuid.New()

	mock.ExpectQuery("GROUP BY media_type").WithArgs(owner).
		WillReturnRows(pgxmock.NewRows([]string{"media_type", "count"}).
			AddRow("image", int64(7)).
			AddRow("video", int64(2)))

	c, err := repo.CountMediaByType(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, domain.Counters{Images: 7, Videos: 2}, c)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_BlobReferenced(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want bool
	}{
		{name: "referenced", url: "https://cdn.test/a.jpg", want: true},
		{name: "unreferenced", url: "https://cdn.test/b.jpg", want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			mock, repo := newMock(t)

			mock.ExpectQuery("SELECT EXISTS").WithArgs(tt.url).
				WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(tt.want))

			got, err := repo.BlobReferenced(context.Background(), tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRepository_BlobReferencedUnavailable(t *testing.T) {
	mock, repo := newMock(t)

	mock.ExpectQuery("SELECT EXISTS").WithArgs("https://cdn.test/a.jpg").
		WillReturnError(&pgconn.PgError{Code: "08006"})

	_, err := repo.BlobReferenced(context.Background(), "https://cdn.test/a.jpg")
	require.ErrorIs(t, err, domain.ErrUnavailable)

	require.NoError(t, mock.ExpectationsWereMet())
}
