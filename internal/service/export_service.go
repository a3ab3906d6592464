package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"limitguard/internal/config"
	"limitguard/internal/domain"
	"limitguard/internal/export"
	"limitguard/internal/port"
)

// ExportResult describes a dashboard export stored in object storage.
type ExportResult struct {
	Key         string    `json:"key"`
	FileName    string    `json:"file_name"`
	DownloadURL string    `json:"download_url"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// ExportService renders dashboards as spreadsheets.
type ExportService interface {
	// WriteDashboard streams the export to w.
	WriteDashboard(ctx context.Context, w io.Writer, tenantID string, year int, format export.Format) (*domain.Dashboard, error)
	// PublishDashboard uploads the export and returns a presigned download link.
	PublishDashboard(ctx context.Context, tenantID string, year int, format export.Format) (*ExportResult, error)
}

type exportService struct {
	limits  LimitsService
	storage port.ObjectStorage
	cfg     *config.S3Config
}

// NewExportService creates a new ExportService. storage may be nil, in which
// case only WriteDashboard is available.
func NewExportService(limits LimitsService, storage port.ObjectStorage, cfg *config.S3Config) ExportService {
	return &exportService{limits: limits, storage: storage, cfg: cfg}
}

func (s *exportService) WriteDashboard(ctx context.Context, w io.Writer, tenantID string, year int, format export.Format) (*domain.Dashboard, error) {
	dash, err := s.limits.Dashboard(ctx, tenantID, year)
	if err != nil {
		return nil, err
	}
	if err := export.Write(w, dash, format); err != nil {
		return nil, fmt.Errorf("export.WriteDashboard: %w", err)
	}
	return dash, nil
}

func (s *exportService) PublishDashboard(ctx context.Context, tenantID string, year int, format export.Format) (*ExportResult, error) {
	if s.storage == nil || s.cfg == nil || s.cfg.Bucket == "" {
		return nil, domain.ErrStorageNotConfigured
	}

	var buf bytes.Buffer
	dash, err := s.WriteDashboard(ctx, &buf, tenantID, year, format)
	if err != nil {
		return nil, err
	}

	name := export.FileName(dash, format)
	key := fmt.Sprintf("tenants/%s/exports/%d/%s", tenantID, time.Now().UTC().Unix(), name)
	if _, err := s.storage.Upload(ctx, port.UploadInput{
		Bucket:      s.cfg.Bucket,
		Key:         key,
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: format.ContentType(),
		Size:        int64(buf.Len()),
	}); err != nil {
		return nil, fmt.Errorf("export.PublishDashboard: upload: %w", err)
	}

	url, err := s.storage.GetPresignedURL(ctx, s.cfg.Bucket, key, s.cfg.PresignExpiry)
	if err != nil {
		// Nobody can reach an export without a link, so drop it.
		if delErr := s.storage.Delete(ctx, s.cfg.Bucket, key); delErr != nil {
			err = errors.Join(err, fmt.Errorf("cleanup %s: %w", key, delErr))
		}
		return nil, fmt.Errorf("export.PublishDashboard: presign: %w", err)
	}
	return &ExportResult{
		Key:         key,
		FileName:    name,
		DownloadURL: url,
		ExpiresAt:   time.Now().UTC().Add(time.Duration(s.cfg.PresignExpiry) * time.Second),
	}, nil
}
