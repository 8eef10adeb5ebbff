package job

import (
	"context"
	"time"

	"fileconv/classify"
	"fileconv/dispatch"
	"fileconv/failures"
	"fileconv/logger"
	"fileconv/metrics"
	"fileconv/storage"
	"fileconv/utils"
)

// ConvertRequest is a client's request to convert a stored original
type ConvertRequest struct {
	JobID        string
	TargetFormat string
	Options      map[string]any
}

type ConvertResult struct {
	JobID            string
	DownloadFilename string
	Size             int
	ContentType      string
}

func invalidJobID() error {
	return failures.New(failures.ClientInput, failures.ReasonInvalidJobID, "Invalid job ID format")
}

// Convert loads the original for req.JobID, runs the selected strategy and
// stores the result as converted{ext}. Any earlier output for the job is
// removed first so the download always finds the latest result.
func (s *Service) Convert(ctx context.Context, req ConvertRequest) (ConvertResult, error) {
	if !utils.ValidJobID(req.JobID) {
		return ConvertResult{}, invalidJobID()
	}
	opts, err := dispatch.ParseOptions(req.Options)
	if err != nil {
		return ConvertResult{}, err
	}

	key, err := s.store.FindOne(ctx, storage.Original, req.JobID)
	if err != nil {
		return ConvertResult{}, failures.Wrap(failures.NotFound, failures.ReasonNotFound, "File not found", err)
	}
	data, err := s.store.Get(ctx, key)
	if err != nil {
		return ConvertResult{}, failures.Wrap(failures.NotFound, failures.ReasonNotFound, "File not found", err)
	}

	source := s.sourceType(ctx, key, data)

	start := time.Now()
	out, err := s.dispatcher.Dispatch(ctx, dispatch.Request{
		Source:  source,
		Target:  req.TargetFormat,
		Options: opts,
		Data:    data,
	})
	if err != nil {
		metrics.ObserveConversion(out.Rule.String(), failures.KindOf(err).String(), time.Since(start))
		logger.Warnf("Conversion for job %s (%s -> %s) failed: %v", req.JobID, source, req.TargetFormat, err)
		return ConvertResult{}, err
	}
	metrics.ObserveConversion(out.Rule.String(), "ok", time.Since(start))

	outName := "converted" + ExtensionFor(out.Target)
	newKey, err := s.store.Put(ctx, storage.Converted, req.JobID, outName, out.Data, map[string]string{storage.MetaMimeType: out.Target})
	if err != nil {
		logger.Errorf("Failed to store conversion for job %s: %v", req.JobID, err)
		return ConvertResult{}, failures.Wrap(failures.Internal, failures.ReasonStorage, "Failed to store converted file", err)
	}
	s.removeConverted(ctx, req.JobID, newKey)

	logger.Infow("conversion stored", "job", req.JobID, "state", StateConverted.String(), "rule", out.Rule.String(), "output", outName, "size", len(out.Data))
	return ConvertResult{
		JobID:            req.JobID,
		DownloadFilename: outName,
		Size:             len(out.Data),
		ContentType:      out.Target,
	}, nil
}

// sourceType prefers the type cached at upload and re-sniffs the bytes when
// the metadata is missing or unreadable.
func (s *Service) sourceType(ctx context.Context, key string, data []byte) string {
	meta, err := s.store.Metadata(ctx, key)
	if err == nil {
		if t := meta[storage.MetaMimeType]; t != "" {
			return t
		}
	} else {
		logger.Debugf("Metadata for %s unavailable, sniffing content: %v", key, err)
	}
	return classify.Sniff(data)
}

// removeConverted drops every earlier output of jobID except keep, so a job
// holds one conversion once the new one is safely stored.
func (s *Service) removeConverted(ctx context.Context, jobID, keep string) {
	keys, err := s.store.FindAll(ctx, storage.Converted, jobID)
	if err != nil {
		logger.Warnf("Failed to list earlier conversions for job %s: %v", jobID, err)
		return
	}
	for _, k := range keys {
		if k == keep {
			continue
		}
		if err := s.store.Delete(ctx, k); err != nil {
			logger.Warnf("Failed to remove earlier conversion %s: %v", k, err)
		}
	}
}
