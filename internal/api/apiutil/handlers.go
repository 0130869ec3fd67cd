package apiutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/ivanrubin10/fulbojubilados/internal/api/authz"
)

type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

type HandlerError struct {
	Status  int
	Message string
	Err     error
}

func (e HandlerError) Error() string {
	return e.Message
}

func (e HandlerError) Unwrap() error {
	return e.Err
}

func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return fmt.Errorf("missing request body")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	if err := encoder.Encode(payload); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}

// WriteError renders a HandlerError (or plain error as a 500) as a JSON body
// and logs the wrapped cause.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	logger := log.Ctx(r.Context())

	var handlerErr HandlerError
	if !errors.As(err, &handlerErr) {
		handlerErr = HandlerError{Status: http.StatusInternalServerError, Message: "Internal server error", Err: err}
	}
	if handlerErr.Err != nil {
		logger.Error().Err(handlerErr.Err).Int("status", handlerErr.Status).Msg(handlerErr.Message)
	} else {
		logger.Warn().Int("status", handlerErr.Status).Msg(handlerErr.Message)
	}
	_ = WriteJSON(w, handlerErr.Status, map[string]string{"error": handlerErr.Message})
}

// RequireAdmin enforces admin access for a handler, writing the response
// itself on failure. Returns true when the caller may proceed.
func RequireAdmin(w http.ResponseWriter, r *http.Request) bool {
	logger := log.Ctx(r.Context())
	user := authz.UserFromContext(r.Context())
	if err := authz.RequireAdmin(r.Context()); err != nil {
		switch {
		case errors.Is(err, authz.ErrUnauthenticated):
			logger.Warn().Msg("Admin access denied: unauthenticated")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
		case errors.Is(err, authz.ErrForbidden):
			logEvent := logger.Warn()
			if user != nil {
				logEvent = logEvent.Str("user_id", user.ID)
			}
			logEvent.Msg("Admin access denied: forbidden")
			http.Error(w, "Forbidden", http.StatusForbidden)
		default:
			logger.Error().Err(err).Msg("Admin access denied: error")
			http.Error(w, "Failed to authorize request", http.StatusInternalServerError)
		}
		return false
	}
	return true
}
