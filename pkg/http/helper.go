package http

import (
	"errors"
	"io"
	"net/http"
	"time"

	apperrors "expertly/pkg/errors"

	"github.com/goccy/go-json"
)

// DecodeJSON reads a JSON body into target. An empty body is accepted when allowEmpty is set.
func DecodeJSON(r *http.Request, target any, allowEmpty bool) error {
	if r.Body == nil {
		if allowEmpty {
			return nil
		}
		return apperrors.BadRequest("request body is required")
	}

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) && allowEmpty {
			return nil
		}
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return apperrors.New(apperrors.CodeValidation, "request body too large", http.StatusRequestEntityTooLarge)
		}
		return apperrors.BadRequest("invalid JSON body: " + err.Error())
	}
	return nil
}

// ParseDateParam parses a YYYY-MM-DD query parameter in loc.
func ParseDateParam(r *http.Request, name string, loc *time.Location) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, apperrors.BadRequest(name + " is required")
	}
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(time.DateOnly, raw, loc)
	if err != nil {
		return time.Time{}, apperrors.BadRequest("invalid " + name + ", expected YYYY-MM-DD: " + raw)
	}
	return t, nil
}
