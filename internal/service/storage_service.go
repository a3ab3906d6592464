package service

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"limitguard/internal/config"
	"limitguard/internal/domain"
	"limitguard/internal/port"
)

// PresignUploadInput is the DTO for requesting a direct-to-storage upload URL.
type PresignUploadInput struct {
	TenantID    string
	FileName    string `json:"file_name" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
}

// PresignedUpload is a short-lived URL the client PUTs the file body to.
type PresignedUpload struct {
	URL       string    `json:"url"`
	Key       string    `json:"key"`
	Method    string    `json:"method"`
	ExpiresAt time.Time `json:"expires_at"`
}

// StorageService hands out tenant-scoped object storage URLs.
type StorageService interface {
	PresignUpload(ctx context.Context, input PresignUploadInput) (*PresignedUpload, error)
}

type storageService struct {
	storage port.ObjectStorage
	cfg     *config.S3Config
}

// NewStorageService creates a new StorageService. A nil storage yields
// domain.ErrStorageNotConfigured from every call.
func NewStorageService(storage port.ObjectStorage, cfg *config.S3Config) StorageService {
	return &storageService{storage: storage, cfg: cfg}
}

func (s *storageService) PresignUpload(ctx context.Context, input PresignUploadInput) (*PresignedUpload, error) {
	if input.TenantID == "" {
		return nil, domain.ErrTenantRequired
	}
	if s.storage == nil || s.cfg == nil || s.cfg.Bucket == "" {
		return nil, domain.ErrStorageNotConfigured
	}

	key := fmt.Sprintf("tenants/%s/uploads/%s/%s", input.TenantID, uuid.NewString(), safeFileName(input.FileName))
	url, err := s.storage.PresignUpload(ctx, s.cfg.Bucket, key, input.ContentType, s.cfg.PresignExpiry)
	if err != nil {
		return nil, fmt.Errorf("storage.PresignUpload: %w", err)
	}
	return &PresignedUpload{
		URL:       url,
		Key:       key,
		Method:    "PUT",
		ExpiresAt: time.Now().UTC().Add(time.Duration(s.cfg.PresignExpiry) * time.Second),
	}, nil
}

// safeFileName keeps only the base name so a client cannot escape its prefix.
func safeFileName(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" || base == ".." || base == "" {
		return "upload"
	}
	return base
}
