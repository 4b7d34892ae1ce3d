package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"media-portfolio-api/internal/application/ports"
	"media-portfolio-api/internal/application/services"
	"media-portfolio-api/internal/infrastructure/jwt"
	"media-portfolio-api/internal/interface/api/rest/dto/media"
	"media-portfolio-api/internal/interface/api/rest/middleware"
	"media-portfolio-api/internal/interface/api/rest/validator"
)

type BatchController struct {
	uploadService ports.UploadService
	logger        *zap.Logger
}

func NewBatchController(
	r *gin.Engine,
	uploadService ports.UploadService,
	logger *zap.Logger,
	jwtService *jwt.Service,
) *BatchController {
	bc := &BatchController{
		uploadService: uploadService,
		logger:        logger,
	}

	r.GET(RouteBatch, middleware.AuthMiddleware(jwtService), bc.GetBatchStatusHandler)
	r.DELETE(RouteBatch, middleware.AuthMiddleware(jwtService), bc.CancelBatchHandler)

	return bc
}

func (bc *BatchController) GetBatchStatusHandler(c *gin.Context) {
	ownerID, ok := requireOwner(c)
	if !ok {
		return
	}
	batchID := c.Param("batch_id")
	if err := validator.ValidateBatchID(batchID); err != nil || batchID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.ErrInvalidBatchID.Error()})
		return
	}

	s, err := bc.uploadService.Status(c.Request.Context(), ownerID, batchID)
	if err != nil {
		if errors.Is(err, services.ErrBatchNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "batch not found"})
			return
		}
		c.JSON(
			http.StatusInternalServerError,
			gin.H{"error": "failed to get batch status"},
		)
		bc.logger.Error("Status() error", zap.Error(err))
		return
	}

	c.JSON(http.StatusOK, media.ToResponseBatchStatus(*s))
}

// CancelBatchHandler stops a running batch before its next file starts.
// Files already in flight still finish.
func (bc *BatchController) CancelBatchHandler(c *gin.Context) {
	ownerID, ok := requireOwner(c)
	if !ok {
		return
	}
	batchID := c.Param("batch_id")
	if err := validator.ValidateBatchID(batchID); err != nil || batchID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.ErrInvalidBatchID.Error()})
		return
	}

	if !bc.uploadService.Cancel(ownerID, batchID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no running batch with this id"})
		return
	}

	c.Status(http.StatusAccepted)
}
