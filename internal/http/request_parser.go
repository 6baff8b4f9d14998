package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"renovo/internal/core"
)

// readInput returns the raw JSON input of a call: the input query parameter
// for GET, the body for POST. Empty input yields nil.
func readInput(r *http.Request) ([]byte, error) {
	if r.Method == http.MethodGet {
		if v := r.URL.Query().Get("input"); v != "" {
			return []byte(v), nil
		}
		return nil, nil
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, &core.Error{
				Kind:    kindTooLarge,
				Message: fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit),
			}
		}
		return nil, core.Validation("input", fmt.Errorf("read body: %w", err))
	}
	return bytes.TrimSpace(body), nil
}

// decodeInput unmarshals raw into In. Unknown keys are ignored; a missing
// input decodes to the zero value.
func decodeInput[In any](raw []byte) (In, error) {
	var in In
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return in, nil
	}
	if err := json.Unmarshal(raw, &in); err != nil {
		return in, inputError(err)
	}
	return in, nil
}

// inputError turns a JSON decoding failure into a validation error naming
// the offending field when one is known.
func inputError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return core.Validation(typeErr.Field, fmt.Errorf("must be a %s", typeErr.Type))
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return core.Validation("input", fmt.Errorf("malformed JSON at offset %d", syntaxErr.Offset))
	}
	var e *core.Error
	if errors.As(err, &e) {
		return e
	}
	return core.Validation("input", err)
}
