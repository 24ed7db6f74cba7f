package services

import (
	"context"

	"wapistore/internal/apperr"
	"wapistore/internal/metrics"
	"wapistore/internal/upload"
)

type UploadService struct {
	Relay    upload.Relay
	MaxBytes int64
	Metrics  *metrics.Metrics
}

func NewUploadService(relay upload.Relay, maxBytes int64, m *metrics.Metrics) *UploadService {
	if relay == nil {
		relay = upload.Disabled{}
	}
	return &UploadService{Relay: relay, MaxBytes: maxBytes, Metrics: m}
}

// Upload validates f server-side and relays it to the media host.
func (s *UploadService) Upload(ctx context.Context, f upload.File) (upload.Result, string, error) {
	mediaType, err := upload.Check(f, s.MaxBytes)
	if err != nil {
		s.Metrics.Upload("rejected")
		return upload.Result{}, "", err
	}
	res, err := s.Relay.Upload(ctx, f)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindUnavailable {
			s.Metrics.Upload("unavailable")
		} else {
			s.Metrics.Upload("error")
		}
		return upload.Result{}, mediaType, err
	}
	s.Metrics.Upload("ok")
	return res, mediaType, nil
}
