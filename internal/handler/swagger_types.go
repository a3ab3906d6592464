package handler

import "limitguard/internal/domain"

// Swagger type definitions for API documentation.
// These types are used by swag to generate OpenAPI documentation.

// --- Request Types ---

// CreateDocumentRequest represents the create document request body.
type CreateDocumentRequest struct {
	ID     string          `json:"id" example:"inv-2024-0042"`
	Fields domain.FieldMap `json:"fields" swaggertype:"object"`
}

// PatchDocumentRequest represents the patch request body.
type PatchDocumentRequest struct {
	Changes []domain.PatchChange `json:"changes" binding:"required"`
}

// ExtractionRequest carries the field tree produced by an extractor.
type ExtractionRequest struct {
	Fields domain.FieldMap `json:"fields" binding:"required" swaggertype:"object"`
}

// RecalculateRequest represents the recalculation request body.
type RecalculateRequest struct {
	Year   int      `json:"year" binding:"required" example:"2024"`
	DocIDs []string `json:"doc_ids" example:"inv-2024-0042"`
}

// PresignUploadRequest represents the presign upload request body.
type PresignUploadRequest struct {
	FileName    string `json:"file_name" binding:"required" example:"invoice.pdf"`
	ContentType string `json:"content_type" binding:"required" example:"application/pdf"`
}

// --- Response Types ---

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status string `json:"status" example:"ok"`
	Error  string `json:"error,omitempty"`
}

// --- Generic Response Wrappers ---

// Response wraps a successful response with data.
type Response struct {
	Success bool        `json:"success" example:"true"`
	Data    interface{} `json:"data,omitempty"`
	Meta    *PagMeta    `json:"meta,omitempty"`
}

// ErrorResponseBody wraps an error response.
type ErrorResponseBody struct {
	Success bool      `json:"success" example:"false"`
	Error   *APIError `json:"error"`
}
