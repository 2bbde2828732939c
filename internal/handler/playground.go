// Package handler contains the HTTP request handlers.
//
// Handlers only translate between HTTP and the service layer: decode the
// request, call the service, encode the response. Compilation logic lives in
// internal/service.
package handler

import (
	"html/template"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/sakif/gran-playground/internal/segment"
)

// PlaygroundHandler serves the single-page client: a source editor and four
// output panes (lexer, parser, IR, final output).
// Templates are parsed once at startup and reused for every request.
type PlaygroundHandler struct {
	templates *template.Template
	logger    *slog.Logger
}

// NewPlaygroundHandler parses base.html and playground.html from templateDir.
// base.html defines the page shell; playground.html fills its "content" block.
func NewPlaygroundHandler(templateDir string, logger *slog.Logger) (*PlaygroundHandler, error) {
	tmpl, err := template.ParseFiles(
		filepath.Join(templateDir, "base.html"),
		filepath.Join(templateDir, "playground.html"),
	)
	if err != nil {
		return nil, err
	}

	return &PlaygroundHandler{
		templates: tmpl,
		logger:    logger,
	}, nil
}

// phasePane is one output pane of the page.
type phasePane struct {
	ID    string // element id the client script writes into
	Title string
}

// HandlePlayground serves the playground page.
//
// HTTP: GET /
func (h *PlaygroundHandler) HandlePlayground(w http.ResponseWriter, r *http.Request) {
	data := map[string]interface{}{
		"Title":       "Gran Playground",
		"CompilePath": "/compile",
		"Panes": []phasePane{
			{ID: segment.PhaseLexer, Title: "Lexer"},
			{ID: segment.PhaseParser, Title: "Parser"},
			{ID: segment.PhaseIR, Title: "IR"},
			{ID: "final", Title: "Output"},
		},
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if err := h.templates.ExecuteTemplate(w, "base", data); err != nil {
		h.logger.Error("failed to render template",
			slog.String("error", err.Error()),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
