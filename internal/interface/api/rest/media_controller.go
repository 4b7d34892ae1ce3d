package rest

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"media-portfolio-api/config"
	"media-portfolio-api/internal/application/ports"
	"media-portfolio-api/internal/application/services"
	domain "media-portfolio-api/internal/domain/media"
	"media-portfolio-api/internal/domain/upload"
	"media-portfolio-api/internal/infrastructure/jwt"
	"media-portfolio-api/internal/interface/api/rest/dto/media"
	"media-portfolio-api/internal/interface/api/rest/middleware"
	"media-portfolio-api/internal/interface/api/rest/validator"
)

// slack for the non-file parts of a multipart body
const formOverhead = int64(1 << 20)

type MediaController struct {
	uploadService    ports.UploadService
	lifecycleService ports.LifecycleService
	logger           *zap.Logger
	maxBatchFiles    int
	maxFileBytes     int64
}

func NewMediaController(
	r *gin.Engine,
	uploadService ports.UploadService,
	lifecycleService ports.LifecycleService,
	logger *zap.Logger,
	jwtService *jwt.Service,
	cfg config.Media,
) *MediaController {
	mc := &MediaController{
		uploadService:    uploadService,
		lifecycleService: lifecycleService,
		logger:           logger,
		maxBatchFiles:    cfg.MaxBatchFiles,
		maxFileBytes:     cfg.MaxFileBytes,
	}

	r.GET(RouteMedia, middleware.AuthMiddleware(jwtService), mc.ListMediaHandler)
	r.POST(RouteMedia, middleware.AuthMiddleware(jwtService), mc.UploadMediaHandler)
	r.PUT(RouteMediaProfilePicture, middleware.AuthMiddleware(jwtService), mc.SetProfilePictureHandler)
	r.PATCH(RouteMediaFeatured, middleware.AuthMiddleware(jwtService), mc.ToggleFeaturedHandler)
	r.DELETE(RouteMediaItem, middleware.AuthMiddleware(jwtService), mc.DeleteMediaHandler)
	r.GET(RouteQuota, middleware.AuthMiddleware(jwtService), mc.QuotaHandler)

	return mc
}

func (mc *MediaController) ListMediaHandler(c *gin.Context) {
	ownerID, ok := requireOwner(c)
	if !ok {
		return
	}

	assets, err := mc.lifecycleService.ListMedia(c.Request.Context(), ownerID)
	if err != nil {
		c.JSON(
			http.StatusInternalServerError,
			gin.H{"error": "failed to get media"},
		)
		mc.logger.Error("ListMedia() error", zap.Error(err))
		return
	}

	c.JSON(http.StatusOK, media.ResponseData{
		Data: media.ToResponseMediaList(assets),
	})
}

func (mc *MediaController) QuotaHandler(c *gin.Context) {
	ownerID, ok := requireOwner(c)
	if !ok {
		return
	}

	q, err := mc.lifecycleService.Quota(c.Request.Context(), ownerID)
	if err != nil {
		c.JSON(
			http.StatusInternalServerError,
			gin.H{"error": "failed to get quota"},
		)
		mc.logger.Error("Quota() error", zap.Error(err))
		return
	}

	c.JSON(http.StatusOK, media.ToResponseQuota(q.Used, q.Limits))
}

func (mc *MediaController) UploadMediaHandler(c *gin.Context) {
	ownerID, ok := requireOwner(c)
	if !ok {
		return
	}

	if mc.maxBatchFiles > 0 && mc.maxFileBytes > 0 {
		limit := int64(mc.maxBatchFiles)*mc.maxFileBytes + formOverhead
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	}

	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form"})
		return
	}

	var req media.UploadRequest
	if err = c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request body",
			"details": err.Error(),
		})
		return
	}
	if req.BatchID == "" {
		req.BatchID = c.GetHeader(HeaderBatchID)
	}

	files := form.File["files"]
	if len(files) == 0 {
		files = form.File["file"]
	}
	tags := validator.NormalizeTags(req.Tags)

	if errs := validator.ValidateUpload(req, tags, len(files), mc.maxBatchFiles); errs != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request body",
			"details": errs,
		})
		return
	}

	res, err := mc.uploadService.UploadBatch(
		c.Request.Context(),
		ownerID,
		req.BatchID,
		toCandidates(files),
		media.ToDomainBatchMetadata(req, tags),
	)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyBatch):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrBatchExists):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrBatchAborted) && res != nil:
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error":  "upload aborted, storage unavailable",
				"result": media.ToResponseBatchResult(*res),
			})
			mc.logger.Error("UploadBatch() aborted", zap.Error(err), zap.String("batch_id", res.BatchID))
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to upload media"})
			mc.logger.Error("UploadBatch() error", zap.Error(err))
		}
		return
	}

	status := http.StatusOK
	if len(res.Successes) > 0 {
		status = http.StatusCreated
	}
	c.JSON(status, media.ToResponseBatchResult(*res))
}

func (mc *MediaController) SetProfilePictureHandler(c *gin.Context) {
	ownerID, ok := requireOwner(c)
	if !ok {
		return
	}
	ok, id := validator.IsUUID(c.Param("media_id"))
	if !ok {
		c.JSON(
			http.StatusBadRequest,
			gin.H{"error": "media_id must be a valid UUID"},
		)
		return
	}

	err := mc.lifecycleService.SetProfilePicture(c.Request.Context(), ownerID, id)
	if err != nil {
		mc.writeLifecycleError(c, "SetProfilePicture", "failed to set profile picture", err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (mc *MediaController) ToggleFeaturedHandler(c *gin.Context) {
	ownerID, ok := requireOwner(c)
	if !ok {
		return
	}
	ok, id := validator.IsUUID(c.Param("media_id"))
	if !ok {
		c.JSON(
			http.StatusBadRequest,
			gin.H{"error": "media_id must be a valid UUID"},
		)
		return
	}

	a, err := mc.lifecycleService.ToggleFeatured(c.Request.Context(), ownerID, id)
	if err != nil {
		mc.writeLifecycleError(c, "ToggleFeatured", "failed to update media", err)
		return
	}

	c.JSON(http.StatusOK, media.ToResponseMedia(*a))
}

func (mc *MediaController) DeleteMediaHandler(c *gin.Context) {
	ownerID, ok := requireOwner(c)
	if !ok {
		return
	}
	ok, id := validator.IsUUID(c.Param("media_id"))
	if !ok {
		c.JSON(
			http.StatusBadRequest,
			gin.H{"error": "media_id must be a valid UUID"},
		)
		return
	}

	report, err := mc.lifecycleService.DeleteMedia(c.Request.Context(), ownerID, id)
	if err != nil {
		mc.writeLifecycleError(c, "DeleteMedia", "failed to delete media", err)
		return
	}

	res := media.DeleteResult{ID: id}
	for _, w := range report.Warnings {
		res.Warnings = append(res.Warnings, "blob not removed: "+w.URL)
	}

	c.JSON(http.StatusOK, res)
}

func (mc *MediaController) writeLifecycleError(c *gin.Context, op, msg string, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "media not found"})
	case errors.Is(err, services.ErrNotAnImage):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": msg + ", retry"})
	case errors.Is(err, domain.ErrUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": msg})
		mc.logger.Error(op+"() error", zap.Error(err))
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
		mc.logger.Error(op+"() error", zap.Error(err))
	}
}

func requireOwner(c *gin.Context) (domain.OwnerID, bool) {
	ownerID, ok := middleware.OwnerID(c)
	if !ok {
		c.AbortWithStatusJSON(
			http.StatusUnauthorized,
			gin.H{"error": "missing owner"},
		)
		return domain.OwnerID{}, false
	}
	return ownerID, true
}

func toCandidates(files []*multipart.FileHeader) []upload.Candidate {
	out := make([]upload.Candidate, len(files))
	for idx, fh := range files {
		fh := fh
		out[idx] = upload.Candidate{
			Name:     fh.Filename,
			Size:     fh.Size,
			MimeType: fh.Header.Get("Content-Type"),
			Open: func() (io.ReadCloser, error) {
				return fh.Open()
			},
		}
	}
	return out
}
