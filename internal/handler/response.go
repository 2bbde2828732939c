package handler

// RESPONSE HELPERS:
// Every /compile response is JSON with status 200. Success is a PhaseOutput,
// failure is {"error": "..."}; the client only looks for the "error" key.

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/gran-playground/internal/apperror"
	"github.com/sakif/gran-playground/internal/model"
)

// internalErrorMessage is shown for anything we did not classify.
// Raw errors can contain host paths, so they are logged, never returned.
const internalErrorMessage = "An internal error occurred"

// writeJSON sends a JSON response with the given status code.
// Headers and status must be set before the body is written.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent, all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeCompileError turns a compile failure into {"error": ...}.
//
// Every apperror kind carries a message written for the client. Compiler
// diagnostics were already logged by the service as expected user errors, so
// only unclassified errors are logged here as faults.
func (h *CompileHandler) writeCompileError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperror.AppError

	switch {
	case errors.Is(err, context.Canceled):
		// Client hung up; nobody is reading the response.
		h.logger.Debug("compile request cancelled",
			slog.String("requestId", chimiddleware.GetReqID(r.Context())),
		)
		return

	case errors.As(err, &appErr):
		writeJSON(w, http.StatusOK, model.ErrorResponse{Error: appErr.Message})
		return
	}

	h.logger.Error("unexpected compile failure",
		slog.String("requestId", chimiddleware.GetReqID(r.Context())),
		slog.String("error", err.Error()),
	)
	writeJSON(w, http.StatusOK, model.ErrorResponse{Error: internalErrorMessage})
}
