package routes

import (
	"errors"
	"io"
	"net/http"

	"fileconv/failures"
	"fileconv/logger"
	"fileconv/models"
)

// Upload streams the multipart field "file" into the pipeline. The pipeline
// reads at most the size limit plus one byte, so oversized bodies are
// rejected without buffering them.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	logger.Debugf("Upload request: remoteAddr=%s, contentLength=%d", r.RemoteAddr, r.ContentLength)

	mr, err := r.MultipartReader()
	if err != nil {
		writeError(w, failures.Wrap(failures.ClientInput, failures.ReasonInvalidRequest,
			"invalid content type, expected multipart/form-data", err))
		return
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			writeJSON(w, http.StatusUnprocessableEntity, models.ValidationErrorResponse{
				Detail: "Request validation failed",
				Fields: map[string]string{"file": "is required"},
			})
			return
		}
		if err != nil {
			writeError(w, failures.Wrap(failures.ClientInput, failures.ReasonInvalidRequest, "Malformed multipart body", err))
			return
		}
		if part.FormName() != "file" {
			part.Close()
			continue
		}

		res, err := h.jobs.Upload(r.Context(), part, part.FileName())
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, models.UploadResponse{
			JobID:    res.JobID,
			Filename: res.Filename,
			MimeType: res.DetectedType,
			Size:     res.Size,
		})
		return
	}
}
