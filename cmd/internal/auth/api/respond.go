package authapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Every promodesk API error travels in one envelope:
//
//	{"error":{"code":"invalid_credentials","message":"invalid credentials"}}
//
// Codes are stable machine-readable identifiers for the dashboard frontend;
// messages are for humans and deliberately generic. The admin route group
// shares these helpers so the envelope never drifts between surfaces.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error apiError `json:"error"`
}

// WriteJSON marshals v and writes it with no-store caching; auth responses
// carry tokens and must never land in a shared cache.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":{"code":"server_error","message":"internal error"}}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// WriteError writes the standard error envelope.
func WriteError(w http.ResponseWriter, status int, code, msg string) {
	WriteJSON(w, status, errorResponse{Error: apiError{Code: code, Message: msg}})
}

// ReadJSON decodes a single JSON object from the request body into dst.
// Unknown fields, trailing data and bodies over maxBytes are all rejected;
// request shapes here are small and fixed, so anything extra is a client bug.
func ReadJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, dst any) error {
	if r.Body == nil {
		return errors.New("missing request body")
	}
	defer func() { _ = r.Body.Close() }()

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return fmt.Errorf("body exceeds %d bytes", tooBig.Limit)
		}
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after JSON object")
	}
	return nil
}
