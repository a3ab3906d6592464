package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"limitguard/internal/domain"
	"limitguard/internal/middleware"
	"limitguard/internal/service"
)

// DocumentHandler handles document mutation endpoints.
type DocumentHandler struct {
	documentService service.DocumentService
}

// NewDocumentHandler creates a new DocumentHandler.
func NewDocumentHandler(documentService service.DocumentService) *DocumentHandler {
	return &DocumentHandler{documentService: documentService}
}

// Create handles POST /api/v1/documents
// @Summary Create a document
// @Description Register a document with its initial field tree
// @Tags documents
// @Accept json
// @Produce json
// @Param X-Tenant-ID header string true "Tenant"
// @Param request body CreateDocumentRequest true "Document"
// @Success 201 {object} Response{data=domain.Document}
// @Failure 400 {object} ErrorResponseBody "Validation failed"
// @Failure 409 {object} ErrorResponseBody "Document already exists"
// @Router /documents [post]
func (h *DocumentHandler) Create(c *gin.Context) {
	tenantID, ok := extractTenant(c)
	if !ok {
		return
	}

	var req CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "body must be a JSON object with a fields tree")
		return
	}

	doc, err := h.documentService.Create(c.Request.Context(), service.CreateDocumentInput{
		TenantID:   tenantID,
		DocumentID: req.ID,
		Fields:     req.Fields,
		ActorID:    middleware.GetUserID(c),
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondCreated(c, doc)
}

// GetByID handles GET /api/v1/documents/:id
// @Summary Get a document
// @Tags documents
// @Produce json
// @Param X-Tenant-ID header string true "Tenant"
// @Param id path string true "Document ID"
// @Success 200 {object} Response{data=domain.Document}
// @Failure 404 {object} ErrorResponseBody "Document not found"
// @Router /documents/{id} [get]
func (h *DocumentHandler) GetByID(c *gin.Context) {
	tenantID, ok := extractTenant(c)
	if !ok {
		return
	}

	doc, err := h.documentService.GetByID(c.Request.Context(), tenantID, c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, doc)
}

// Patch handles PATCH /api/v1/documents/:id
// @Summary Apply a patch
// @Description Apply field changes in order. The whole patch is rejected if the result fails validation.
// @Tags documents
// @Accept json
// @Produce json
// @Param X-Tenant-ID header string true "Tenant"
// @Param X-User-ID header string false "Acting user"
// @Param id path string true "Document ID"
// @Param request body PatchDocumentRequest true "Changes"
// @Success 200 {object} Response{data=domain.Document}
// @Failure 400 {object} ErrorResponseBody "Validation failed"
// @Failure 404 {object} ErrorResponseBody "Document not found"
// @Failure 503 {object} ErrorResponseBody "Persistence failure"
// @Router /documents/{id} [patch]
func (h *DocumentHandler) Patch(c *gin.Context) {
	tenantID, ok := extractTenant(c)
	if !ok {
		return
	}

	var req PatchDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "changes must be a list of {path, value, source}")
		return
	}

	doc, err := h.documentService.ApplyPatch(c.Request.Context(), service.PatchInput{
		TenantID:   tenantID,
		DocumentID: c.Param("id"),
		Changes:    req.Changes,
		ActorID:    middleware.GetUserID(c),
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, doc)
}

// CommitExtraction handles POST /api/v1/documents/:id/extraction
// @Summary Commit extracted fields
// @Description Apply a field tree produced by an external extractor as one patch with source "ocr"
// @Tags documents
// @Accept json
// @Produce json
// @Param X-Tenant-ID header string true "Tenant"
// @Param id path string true "Document ID"
// @Param request body ExtractionRequest true "Extracted fields"
// @Success 200 {object} Response{data=domain.Document}
// @Failure 400 {object} ErrorResponseBody "Validation failed"
// @Failure 404 {object} ErrorResponseBody "Document not found"
// @Router /documents/{id}/extraction [post]
func (h *DocumentHandler) CommitExtraction(c *gin.Context) {
	tenantID, ok := extractTenant(c)
	if !ok {
		return
	}

	var req ExtractionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "fields must be a JSON object")
		return
	}

	doc, err := h.documentService.CommitExtraction(c.Request.Context(), service.ExtractionInput{
		TenantID:   tenantID,
		DocumentID: c.Param("id"),
		Fields:     req.Fields,
		ActorID:    middleware.GetUserID(c),
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, doc)
}

// ListAudit handles GET /api/v1/documents/:id/audit
// @Summary List audit records
// @Description Audit trail of a document, newest first
// @Tags documents
// @Produce json
// @Param X-Tenant-ID header string true "Tenant"
// @Param id path string true "Document ID"
// @Param offset query int false "Offset" default(0)
// @Param limit query int false "Limit" default(20)
// @Success 200 {object} Response{data=[]domain.AuditRecord,meta=PagMeta}
// @Failure 404 {object} ErrorResponseBody "Document not found"
// @Router /documents/{id}/audit [get]
func (h *DocumentHandler) ListAudit(c *gin.Context) {
	tenantID, ok := extractTenant(c)
	if !ok {
		return
	}

	offset, limit := parsePagination(c)
	records, total, err := h.documentService.ListAudit(c.Request.Context(), tenantID, c.Param("id"), offset, limit)
	if err != nil {
		HandleError(c, err)
		return
	}
	if records == nil {
		records = []domain.AuditRecord{}
	}
	RespondPaginated(c, records, PagMeta{Total: total, Offset: offset, Limit: limit})
}
