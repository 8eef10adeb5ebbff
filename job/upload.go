package job

import (
	"context"
	"io"

	"fileconv/classify"
	"fileconv/failures"
	"fileconv/logger"
	"fileconv/metrics"
	"fileconv/storage"
	"fileconv/utils"
)

// UploadResult describes an accepted upload
type UploadResult struct {
	JobID        string
	Filename     string
	DetectedType string
	Size         int
}

// Upload reads at most MaxSize+1 bytes from r, classifies them and stores
// the accepted original under a fresh job identifier. Nothing is stored when
// the upload is rejected.
func (s *Service) Upload(ctx context.Context, r io.Reader, filename string) (UploadResult, error) {
	data, err := classify.ReadBounded(r, s.classifier.MaxSize())
	if err != nil {
		return UploadResult{}, failures.Wrap(failures.ClientInput, failures.ReasonInvalidRequest, "Failed to read upload", err)
	}

	name := utils.SafeFilename(filename)
	res := s.classifier.Classify(data, name)
	if !res.Accepted {
		metrics.Uploads.WithLabelValues(res.Reason).Inc()
		logger.Infow("upload rejected", "filename", name, "reason", res.Reason, "detected", res.DetectedType)
		return UploadResult{}, res.Err()
	}

	jobID := utils.NewJobID()
	meta := map[string]string{storage.MetaMimeType: res.DetectedType}
	if _, err := s.store.Put(ctx, storage.Original, jobID, name, data, meta); err != nil {
		logger.Errorf("Failed to store upload for job %s: %v", jobID, err)
		return UploadResult{}, failures.Wrap(failures.Internal, failures.ReasonStorage, "Failed to store upload", err)
	}

	metrics.Uploads.WithLabelValues("accepted").Inc()
	metrics.UploadBytes.Observe(float64(len(data)))
	logger.Infow("upload stored", "job", jobID, "state", StateStored.String(), "type", res.DetectedType, "size", len(data))

	return UploadResult{
		JobID:        jobID,
		Filename:     name,
		DetectedType: res.DetectedType,
		Size:         len(data),
	}, nil
}
