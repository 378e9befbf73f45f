package server

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"

	apperrors "github.com/jrsteele09/go-account-service/internal/errors"
	"github.com/jrsteele09/go-account-service/media"
)

// multipartMemory is how much of a multipart body is kept in memory before
// spilling file parts to disk.
const multipartMemory = 8 << 20

// decodeJSON reads a JSON body into dst. An empty body leaves dst untouched.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return bodyError(err, "request body must be valid JSON")
	}
	return nil
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

func parseMultipart(r *http.Request) error {
	if !isMultipart(r) {
		return apperrors.Validation("request must be multipart/form-data")
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return bodyError(err, "invalid multipart body")
	}
	return nil
}

// formUpload returns the file sent in field, or nil when the field is absent.
// The returned closer must be closed once the upload has been consumed.
func formUpload(r *http.Request, field string) (*media.Upload, io.Closer, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, bodyError(err, "invalid "+field+" file")
	}
	return &media.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	}, file, nil
}

// cleanupMultipart releases temporary files created while parsing.
func cleanupMultipart(r *http.Request, closers ...io.Closer) {
	for _, c := range closers {
		if c != nil {
			_ = c.Close()
		}
	}
	if r.MultipartForm != nil {
		_ = r.MultipartForm.RemoveAll()
	}
}

func bodyError(err error, message string) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return apperrors.Validation("request body too large")
	}
	return apperrors.Validation(message)
}
