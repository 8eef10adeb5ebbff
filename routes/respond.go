package routes

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"fileconv/failures"
	"fileconv/logger"
	"fileconv/models"
)

const reasonRateLimited = "rate limited"

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Errorf("Failed to encode response: %v", err)
	}
}

// writeError maps a pipeline error onto its status code and JSON body
func writeError(w http.ResponseWriter, err error) {
	status := failures.HTTPStatus(err)
	fe, ok := failures.As(err)
	if !ok {
		logger.Errorf("Unclassified error reached transport: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Detail: "Internal server error"})
		return
	}
	if status >= http.StatusInternalServerError {
		logger.Errorf("Request failed (%s): %v", fe.Reason, err)
	}
	writeJSON(w, status, models.ErrorResponse{Detail: fe.Detail(), Reason: fe.Reason})
}

func writeValidationError(w http.ResponseWriter, err error) {
	fields := map[string]string{}
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, e := range verrs {
			switch e.Tag() {
			case "required":
				fields[e.Field()] = "is required"
			default:
				fields[e.Field()] = "invalid value"
			}
		}
	} else {
		fields["body"] = err.Error()
	}
	writeJSON(w, http.StatusUnprocessableEntity, models.ValidationErrorResponse{
		Detail: "Request validation failed",
		Fields: fields,
	})
}
