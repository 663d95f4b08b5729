package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

// decodeBody reads a JSON body into dst.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperrors.InvalidInput("request body is required")
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperrors.InvalidInput("request body is too large")
		}
		return apperrors.InvalidInput("invalid request body: " + err.Error())
	}
	return nil
}

// pathID reads a non-empty id URL parameter.
func pathID(r *http.Request, name string) (domain.ID, error) {
	id := domain.ID(chi.URLParam(r, name))
	if id.IsZero() {
		err := apperrors.InvalidInput(name + " is required")
		err.Fields = map[string]string{name: "is required"}
		return "", err
	}
	return id, nil
}
