package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"limitguard/internal/service"
)

// StorageHandler hands out upload URLs.
type StorageHandler struct {
	storageService service.StorageService
}

// NewStorageHandler creates a new StorageHandler.
func NewStorageHandler(storageService service.StorageService) *StorageHandler {
	return &StorageHandler{storageService: storageService}
}

// PresignUpload handles POST /api/v1/storage/presign-upload
// @Summary Presign an upload
// @Description Return a short-lived URL to PUT a document file directly to object storage
// @Tags storage
// @Accept json
// @Produce json
// @Param X-Tenant-ID header string true "Tenant"
// @Param request body PresignUploadRequest true "File details"
// @Success 201 {object} Response{data=service.PresignedUpload}
// @Failure 400 {object} ErrorResponseBody "Invalid request"
// @Failure 501 {object} ErrorResponseBody "Object storage not configured"
// @Router /storage/presign-upload [post]
func (h *StorageHandler) PresignUpload(c *gin.Context) {
	tenantID, ok := extractTenant(c)
	if !ok {
		return
	}

	var req PresignUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "file_name and content_type are required")
		return
	}

	out, err := h.storageService.PresignUpload(c.Request.Context(), service.PresignUploadInput{
		TenantID:    tenantID,
		FileName:    req.FileName,
		ContentType: req.ContentType,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondCreated(c, out)
}
