package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/sakif/gran-playground/internal/model"
)

// maxBodyBytes caps the request body. JSON escaping can double the size of the
// source, so this is well above the service's source limit.
const maxBodyBytes = 1 << 20

// Compiler is the part of service.CompileService the handler needs.
// Accepting an interface lets tests drive the handler without a compiler.
type Compiler interface {
	Compile(ctx context.Context, source string) (*model.PhaseOutput, error)
}

// CompileHandler serves POST /compile.
type CompileHandler struct {
	compiler Compiler
	logger   *slog.Logger
}

// NewCompileHandler creates a new CompileHandler.
func NewCompileHandler(compiler Compiler, logger *slog.Logger) *CompileHandler {
	return &CompileHandler{
		compiler: compiler,
		logger:   logger,
	}
}

// HandleCompile compiles the submitted code and returns its phases.
//
// HTTP: POST /compile
// REQUEST BODY: {"code": "print(1+1)"}
//
// RESPONSE (always 200):
//
//	{"lexer": "...", "parser": "...", "ir": "...", "final": "..."}
//	{"error": "syntax error at line 3"}
//
// An empty body or a missing "code" field compiles the empty program.
func (h *CompileHandler) HandleCompile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req model.CompileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.logger.Warn("invalid compile request body", slog.String("error", err.Error()))
		writeJSON(w, http.StatusOK, model.ErrorResponse{Error: "invalid request body"})
		return
	}

	out, err := h.compiler.Compile(r.Context(), req.Code)
	if err != nil {
		h.writeCompileError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, out)
}
