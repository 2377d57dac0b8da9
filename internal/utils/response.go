package utils

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"ms-reservations/internal/apperr"
	"ms-reservations/internal/logger"
)

const maxBodyBytes = 1 << 20

type APIResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

func SuccessResponse(message string, data interface{}) APIResponse {
	return APIResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

// ErrorResponse carries a stable error code in Error so clients branch on the kind.
func ErrorResponse(message, code string) APIResponse {
	return APIResponse{
		Success:   false,
		Message:   message,
		Error:     code,
		Timestamp: time.Now().UTC(),
	}
}

func WriteJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func WriteSuccess(w http.ResponseWriter, status int, message string, data interface{}) {
	WriteJSON(w, status, SuccessResponse(message, data))
}

// WriteError maps err to its status code and stable code. Internal failures are
// logged and their details withheld from the client.
func WriteError(w http.ResponseWriter, log *logger.Logger, err error) {
	status := apperr.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		log.Error("API", err.Error())
	}
	WriteJSON(w, status, ErrorResponse(apperr.PublicMessage(err), apperr.Code(err)))
}

// DecodeJSON reads a JSON body into dst. An empty body leaves dst untouched.
func DecodeJSON(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return apperr.Invalid("invalid request body: %s", err.Error())
	}
	if dec.More() {
		return apperr.Invalid("invalid request body: unexpected trailing data")
	}
	return nil
}
