package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"limitguard/internal/domain"
	"limitguard/internal/middleware"
)

// APIResponse is the standard envelope for all API responses.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *PagMeta    `json:"meta,omitempty"`
}

// APIError holds error details in the response.
type APIError struct {
	Code       string             `json:"code"`
	Message    string             `json:"message"`
	Violations []domain.Violation `json:"violations,omitempty"`
}

// PagMeta holds pagination metadata.
type PagMeta struct {
	Total  int `json:"total"`
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// RespondOK sends a 200 success response.
func RespondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

// RespondCreated sends a 201 success response.
func RespondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, APIResponse{Success: true, Data: data})
}

// RespondPaginated sends a 200 success response with pagination metadata.
func RespondPaginated(c *gin.Context, data interface{}, meta PagMeta) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data, Meta: &meta})
}

// RespondError sends an error response with the given status code.
func RespondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: msg},
	})
}

// MapDomainError translates domain errors to HTTP status codes and error codes.
func MapDomainError(err error) (status int, code, msg string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, "VALIDATION_FAILED", "document validation failed"
	case errors.Is(err, domain.ErrEmptyPatch):
		return http.StatusBadRequest, "EMPTY_PATCH", "patch contains no changes"
	case errors.Is(err, domain.ErrInvalidPath):
		return http.StatusBadRequest, "INVALID_PATH", "invalid field path"
	case errors.Is(err, domain.ErrInvalidYear):
		return http.StatusBadRequest, "INVALID_YEAR", "year must be a four-digit calendar year"
	case errors.Is(err, domain.ErrTenantRequired):
		return http.StatusUnauthorized, "UNAUTHORIZED", "tenant context required"
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized"
	case errors.Is(err, domain.ErrDocumentNotFound):
		return http.StatusNotFound, "DOCUMENT_NOT_FOUND", "document not found"
	case errors.Is(err, domain.ErrSnapshotsNotFound):
		return http.StatusNotFound, "DASHBOARD_NOT_FOUND", "no limits have been computed for this year"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "resource not found"
	case errors.Is(err, domain.ErrDocumentExists):
		return http.StatusConflict, "DOCUMENT_ALREADY_EXISTS", "document already exists"
	case errors.Is(err, domain.ErrStorageNotConfigured):
		return http.StatusNotImplemented, "STORAGE_NOT_CONFIGURED", "object storage is not configured"
	case errors.Is(err, domain.ErrConfiguration):
		return http.StatusInternalServerError, "CONFIGURATION_ERROR", "limit configuration missing or invalid"
	case errors.Is(err, domain.ErrPersistence):
		return http.StatusServiceUnavailable, "PERSISTENCE_FAILURE", "storage temporarily unavailable; retry"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred"
	}
}

// HandleError maps a domain error and sends the appropriate error response.
// Validation failures carry every violation.
func HandleError(c *gin.Context, err error) {
	status, code, msg := MapDomainError(err)
	if status >= 500 {
		logrus.WithFields(logrus.Fields{
			"request_id": c.GetString(middleware.ContextKeyRequestID),
			"tenant_id":  c.GetString(middleware.ContextKeyTenantID),
		}).WithError(err).Error("internal error")
	}
	apiErr := &APIError{Code: code, Message: msg}
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		apiErr.Violations = verr.Violations
	}
	c.JSON(status, APIResponse{Success: false, Error: apiErr})
}

// extractTenant returns the caller's tenant. Returns false if it is missing
// (error response already written).
func extractTenant(c *gin.Context) (string, bool) {
	tenantID, err := middleware.GetTenantID(c)
	if err != nil {
		RespondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing tenant context")
		return "", false
	}
	return tenantID, true
}

// parseYear reads a required year from the query string.
func parseYear(c *gin.Context) (int, bool) {
	year, err := domain.ParseYear(c.Query("year"))
	if err != nil {
		HandleError(c, err)
		return 0, false
	}
	return year, true
}

// parsePagination extracts offset and limit from query params with defaults.
func parsePagination(c *gin.Context) (offset, limit int) {
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return offset, limit
}
