package media

import (
	domain "media-portfolio-api/internal/domain/media"
)

func fromDBModel(model *Media) *domain.Asset {
	tags := model.Tags
	if tags == nil {
		tags = []string{}
	}

	return &domain.Asset{
		ID:      model.ID,
		OwnerID: model.OwnerID,

		Title:       model.Title,
		Description: model.Description,
		MediaType:   domain.Type(model.MediaType),

		StorageURL:   model.StorageURL,
		ThumbnailURL: model.ThumbnailURL,

		FileSizeBytes: model.FileSizeBytes,
		MimeType:      model.MimeType,

		IsProfilePicture: model.IsProfilePicture,
		IsFeatured:       model.IsFeatured,
		Tags:             tags,

		CreatedAt: model.CreatedAt,
	}
}

func fromDBModels(models *MediaList) domain.Assets {
	ms := make(domain.Assets, len(*models))
	for idx, m := range *models {
		ms[idx] = fromDBModel(m)
	}

	return ms
}
