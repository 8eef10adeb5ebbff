package routes

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"fileconv/logger"
)

// Download sends the converted file as an attachment
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")

	res, err := h.jobs.Download(r.Context(), jobID)
	if err != nil {
		writeError(w, err)
		return
	}

	hdr := w.Header()
	hdr.Set("Content-Type", "application/octet-stream")
	hdr.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, res.Filename))
	hdr.Set("Content-Length", strconv.Itoa(len(res.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(res.Data); err != nil {
		logger.Warnf("Download of job %s interrupted: %v", jobID, err)
	}
}
