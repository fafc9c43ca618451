package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/shopfront/apiserver/internal/apperr"
	"github.com/shopfront/apiserver/internal/services"
)

type contextKey string

const contextCallerKey contextKey = "caller"

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Message string `json:"message"`
}

func withCaller(ctx context.Context, caller services.Caller) context.Context {
	return context.WithValue(ctx, contextCallerKey, caller)
}

func callerFromContext(ctx context.Context) (services.Caller, bool) {
	caller, ok := ctx.Value(contextCallerKey).(services.Caller)
	if !ok || caller.ID == "" {
		return services.Caller{}, false
	}
	return caller, true
}

// decodeJSON reads the request body into dst. An empty body leaves dst untouched.
func decodeJSON(r *http.Request, dst any) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Message: message})
}

// writeServiceError renders err using the status table of its kind.
func writeServiceError(w http.ResponseWriter, err error) {
	appErr := apperr.From(err)
	writeError(w, appErr.Status(), appErr.Message)
}
