package server

import (
	"encoding/json"
	"errors"
	"net/http"

	apperrors "github.com/jrsteele09/go-account-service/internal/errors"
	"github.com/rs/zerolog/log"
)

const contentTypeJSON = "application/json; charset=utf-8"

// apiResponse is the envelope of every successful response.
type apiResponse struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// apiError is the envelope of every failed response. It never carries the cause.
type apiError struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Err(err).Msg("writeJSON: failed to encode response")
	}
}

func writeSuccess(w http.ResponseWriter, status int, data any, message string) {
	if data == nil {
		data = struct{}{}
	}
	writeJSON(w, status, apiResponse{StatusCode: status, Data: data, Message: message, Success: true})
}

// writeError renders err using its tag. Internal faults are logged with their
// cause and answered with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperrors.KindOf(err)
	status := apperrors.HTTPStatus(kind)

	message := "something went wrong"
	var appErr *apperrors.Error
	if errors.As(err, &appErr) && kind != apperrors.KindInternal && appErr.Message != "" {
		message = appErr.Message
	}

	if kind == apperrors.KindInternal {
		log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("Request failed")
	} else {
		log.Debug().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("Request rejected")
	}

	writeJSON(w, status, apiError{StatusCode: status, Message: message, Success: false})
}
