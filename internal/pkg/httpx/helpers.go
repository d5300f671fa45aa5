package httpx

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/NagaaSaketh/KaviosPix-BE/internal/pkg/serr"
)

// ErrorResponse is the wire shape of every error reply.
type ErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

func ReadJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	return dec.Decode(out)
}

func WriteJSON(w http.ResponseWriter, status int, resp any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	return enc.Encode(resp)
}

// HandleErr logs the failure and writes the taxonomy-mapped response.
// Internal detail is never exposed on 5xx replies.
func HandleErr(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("request error",
		"error", err,
		"method", r.Method,
		"url", r.URL.String(),
		"remote_addr", r.RemoteAddr,
	)

	var se *serr.ServiceError
	if errors.As(err, &se) {
		resp := ErrorResponse{Message: se.Msg}
		if se.Err != nil && se.StatusCode < http.StatusInternalServerError {
			resp.Error = se.Err.Error()
		}
		_ = WriteJSON(w, se.StatusCode, resp)
		return
	}

	_ = WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
		Message: "Internal Server Error",
	})
}
