package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"renovo/internal/core"
	"renovo/internal/log"
)

// Envelope kinds that never leave the transport.
const (
	kindRateLimited      core.ErrorKind = "rate_limited"
	kindMethodNotAllowed core.ErrorKind = "method_not_allowed"
	kindTooLarge         core.ErrorKind = "payload_too_large"
)

type dataEnvelope struct {
	Data any `json:"data"`
}

type errorBody struct {
	Kind    core.ErrorKind    `json:"kind"`
	Message string            `json:"message"`
	Fields  []core.FieldError `json:"fields,omitempty"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

// StatusFor maps an error kind onto its HTTP status.
func StatusFor(kind core.ErrorKind) int {
	switch kind {
	case core.KindValidation, core.KindInvalidRange:
		return http.StatusBadRequest
	case core.KindNotFound:
		return http.StatusNotFound
	case core.KindConflict:
		return http.StatusConflict
	case kindRateLimited:
		return http.StatusTooManyRequests
	case kindMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case kindTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, dataEnvelope{Data: data})
}

// writeError renders err in the error envelope. Internal errors are logged
// and reported without detail.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	body := errorBody{Kind: core.KindInternal, Message: "internal error"}
	var e *core.Error
	if errors.As(err, &e) && e.Kind != core.KindInternal {
		body = errorBody{Kind: e.Kind, Message: e.Message, Fields: e.Fields}
		if body.Message == "" && e.Err != nil {
			body.Message = e.Err.Error()
		}
	} else {
		s.events.LogError(r.Context(), "Operation failed", err, operation,
			log.NewFields().WithComponent(log.ComponentRPC))
	}
	writeJSON(w, StatusFor(body.Kind), errorEnvelope{Error: body})
}
