package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dmitrijs2005/blogapi/internal/common"
	"github.com/dmitrijs2005/blogapi/internal/sanitize"
)

// maxJSONBodyBytes bounds JSON request bodies; covers go through the
// multipart path with its own ceiling.
const maxJSONBodyBytes = 1 << 20

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps sentinel errors onto the wire taxonomy. Unknown errors
// never leak their text.
func (rt *Router) writeError(w http.ResponseWriter, req *http.Request, err error) {
	var status int
	var body errorResponse

	switch {
	case errors.Is(err, common.ErrorValidation):
		status, body = http.StatusBadRequest, errorResponse{"VALIDATION_ERROR", "invalid request"}
	case errors.Is(err, common.ErrorUnauthorized):
		status, body = http.StatusUnauthorized, errorResponse{"AUTH_ERROR", "authentication failed"}
	case errors.Is(err, common.ErrorAlreadyExists):
		status, body = http.StatusConflict, errorResponse{"CONFLICT_ERROR", "resource already exists"}
	case errors.Is(err, common.ErrorNotFound):
		status, body = http.StatusNotFound, errorResponse{"NOT_FOUND", "resource not found"}
	case errors.Is(err, common.ErrorRateLimited):
		status, body = http.StatusTooManyRequests, errorResponse{"RATE_LIMIT_ERROR", "too many requests, please try again later"}
	case errors.Is(err, common.ErrorUnsupportedMedia):
		status, body = http.StatusUnsupportedMediaType, errorResponse{"UNSUPPORTED_MEDIA", "unsupported file type"}
	default:
		rt.logger.Error(req.Context(), "internal error", "err", err, "path", req.URL.Path)
		status, body = http.StatusInternalServerError, errorResponse{"INTERNAL_ERROR", "internal server error"}
	}

	writeJSON(w, status, body)
}

// decodeSanitized unmarshals a JSON body, runs the sanitizer over the
// decoded tree (dropping dangerous keys, stripping script content) and only
// then binds the cleaned tree onto dst.
func decodeSanitized(w http.ResponseWriter, req *http.Request, dst any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, req.Body, maxJSONBodyBytes))
	if err != nil {
		return common.ErrorValidation
	}

	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return common.ErrorValidation
	}

	cleaned, err := json.Marshal(sanitize.Clean(raw))
	if err != nil {
		return common.ErrorValidation
	}
	if err := json.Unmarshal(cleaned, dst); err != nil {
		return common.ErrorValidation
	}
	return nil
}
