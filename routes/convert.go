package routes

import (
	"encoding/json"
	"io"
	"net/http"
	"reflect"
	"strings"

	"fileconv/job"
	"fileconv/logger"
	"fileconv/models"
)

const maxConvertBody = 1 << 20

func jsonFieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	return name
}

func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	var req models.ConvertRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxConvertBody))
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		logger.Debugf("Malformed convert body from %s: %v", r.RemoteAddr, err)
		writeValidationError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeValidationError(w, err)
		return
	}

	res, err := h.jobs.Convert(r.Context(), job.ConvertRequest{
		JobID:        req.JobID,
		TargetFormat: req.TargetFormat,
		Options:      req.Options,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, models.ConvertResponse{
		JobID:            res.JobID,
		DownloadFilename: res.DownloadFilename,
		Size:             res.Size,
	})
}
