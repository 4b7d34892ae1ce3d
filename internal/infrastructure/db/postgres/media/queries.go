package media

const mediaColumns = `id, owner_id, title, description, media_type, storage_url, thumbnail_url, file_size_bytes, mime_type, is_profile_picture, is_featured, tags, created_at`

const (
	SelectMediaByOwner = `
		SELECT ` + mediaColumns + `
		FROM media_assets
		WHERE owner_id = $1
		ORDER BY created_at DESC, id
	`
	SelectMediaByID = `
		SELECT ` + mediaColumns + `
		FROM media_assets
		WHERE id = $1 AND owner_id = $2
	`
	InsertMedia = `
		INSERT INTO media_assets (owner_id, title, description, media_type, storage_url, thumbnail_url, file_size_bytes, mime_type, is_featured, tags)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING
		  ` + mediaColumns + `
	`
	UpdateMediaByID = `
		UPDATE media_assets
		SET is_featured = COALESCE($3::boolean, is_featured),
		    is_profile_picture = COALESCE($4::boolean, is_profile_picture)
		WHERE id = $1 AND owner_id = $2
		RETURNING
		  ` + mediaColumns + `
	`
	ClearProfilePictureByOwner = `
		UPDATE media_assets
		SET is_profile_picture = false
		WHERE owner_id = $1 AND is_profile_picture
	`
	DeleteMediaByID = `DELETE FROM media_assets WHERE id = $1 AND owner_id = $2`
	CountMediaByType = `
		SELECT media_type, count(*)
		FROM media_assets
		WHERE owner_id = $1
		GROUP BY media_type
	`
	BlobURLReferenced = `
		SELECT EXISTS (
		  SELECT 1 FROM media_assets WHERE storage_url = $1
		  UNION ALL
		  SELECT 1 FROM media_assets WHERE thumbnail_url = $1
		)
	`
)
