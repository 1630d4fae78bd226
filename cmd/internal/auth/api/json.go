package authapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// Error codes returned in the {"error":{...}} body.
const (
	codeInvalidJSON        = "invalid_json"
	codeBodyTooLarge       = "body_too_large"
	codeInvalidRequest     = "invalid_request"
	codeInvalidCredentials = "invalid_credentials"
	codeUnauthenticated    = "unauthenticated"
	codeServerError        = "server_error"
)

var errTrailingJSON = errors.New("extra data after JSON object")

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error apiError `json:"error"`
}

// writeJSON sends v with no-store caching; every auth response may carry
// session state.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: apiError{Code: code, Message: msg}})
}

// writeSignInAgain is the single reply for every session failure, so callers
// cannot tell expired, revoked and unknown tokens apart.
func writeSignInAgain(w http.ResponseWriter) {
	writeError(w, http.StatusUnauthorized, codeUnauthenticated, "please sign in again")
}

func writeInternal(w http.ResponseWriter) {
	writeError(w, http.StatusInternalServerError, codeServerError, "internal error")
}

// writeDecodeError maps a decodeJSON failure to 413 or 400.
func writeDecodeError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, codeBodyTooLarge, "request body too large")
		return
	}
	writeError(w, http.StatusBadRequest, codeInvalidJSON, "invalid request body")
}

// decodeJSON reads exactly one JSON object of at most maxBytes into dst.
// Unknown fields are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, dst any) error {
	if r.Body == nil {
		return io.ErrUnexpectedEOF
	}
	defer func() { _ = r.Body.Close() }()

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return errTrailingJSON
	}
	return nil
}
