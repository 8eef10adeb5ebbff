package job

import (
	"context"
	"errors"
	"path"

	"fileconv/failures"
	"fileconv/logger"
	"fileconv/metrics"
	"fileconv/storage"
	"fileconv/utils"
)

type DownloadResult struct {
	Filename string
	Data     []byte
}

// Download returns the converted output of a job
func (s *Service) Download(ctx context.Context, jobID string) (DownloadResult, error) {
	if !utils.ValidJobID(jobID) {
		metrics.Downloads.WithLabelValues("invalid").Inc()
		return DownloadResult{}, invalidJobID()
	}

	key, err := s.store.FindOne(ctx, storage.Converted, jobID)
	if errors.Is(err, storage.ErrNotFound) {
		metrics.Downloads.WithLabelValues("not_found").Inc()
		return DownloadResult{}, failures.New(failures.NotFound, failures.ReasonNotFound, "Converted file not found")
	}
	if err != nil {
		metrics.Downloads.WithLabelValues("error").Inc()
		return DownloadResult{}, failures.Wrap(failures.Internal, failures.ReasonStorage, "Download failed", err)
	}

	data, err := s.store.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		// swept between listing and reading
		metrics.Downloads.WithLabelValues("not_found").Inc()
		return DownloadResult{}, failures.New(failures.NotFound, failures.ReasonNotFound, "Converted file not found")
	}
	if err != nil {
		metrics.Downloads.WithLabelValues("error").Inc()
		return DownloadResult{}, failures.Wrap(failures.Internal, failures.ReasonStorage, "Download failed", err)
	}

	metrics.Downloads.WithLabelValues("ok").Inc()
	logger.Infow("download served", "job", jobID, "state", StateDownloaded.String(), "size", len(data))
	return DownloadResult{Filename: path.Base(key), Data: data}, nil
}
