package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/gran-playground/internal/apperror"
	"github.com/sakif/gran-playground/internal/handler"
	"github.com/sakif/gran-playground/internal/model"
)

// MockCompiler implements a fast, mock compiler for handler testing without a real process.
type MockCompiler struct {
	Called      bool
	CapturedSrc string
	ReturnOut   *model.PhaseOutput
	ReturnErr   error
}

func (m *MockCompiler) Compile(_ context.Context, source string) (*model.PhaseOutput, error) {
	m.Called = true
	m.CapturedSrc = source
	if m.ReturnErr != nil {
		return nil, m.ReturnErr
	}
	return m.ReturnOut, nil
}

func postCompile(t *testing.T, h *handler.CompileHandler, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/compile", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	h.HandleCompile(rr, req)

	var res map[string]any
	if rr.Body.Len() > 0 {
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
	}
	return rr, res
}

func TestCompileHandler_HandleCompile(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	t.Run("successful compilation", func(t *testing.T) {
		mock := &MockCompiler{
			ReturnOut: &model.PhaseOutput{Lexer: "TOK1", Parser: "AST1", IR: "IR1", Final: "2"},
		}
		h := handler.NewCompileHandler(mock, logger)

		rr, res := postCompile(t, h, `{"code":"print(1+1)"}`)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
		assert.Equal(t, map[string]any{"lexer": "TOK1", "parser": "AST1", "ir": "IR1", "final": "2"}, res)
		assert.Equal(t, "print(1+1)", mock.CapturedSrc)
	})

	t.Run("empty phases are still present", func(t *testing.T) {
		mock := &MockCompiler{ReturnOut: &model.PhaseOutput{}}
		h := handler.NewCompileHandler(mock, logger)

		_, res := postCompile(t, h, `{"code":""}`)

		assert.Equal(t, map[string]any{"lexer": "", "parser": "", "ir": "", "final": ""}, res)
	})

	t.Run("missing code field compiles empty source", func(t *testing.T) {
		mock := &MockCompiler{ReturnOut: &model.PhaseOutput{}}
		h := handler.NewCompileHandler(mock, logger)

		rr, _ := postCompile(t, h, `{}`)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.True(t, mock.Called)
		assert.Equal(t, "", mock.CapturedSrc)
	})

	t.Run("empty body compiles empty source", func(t *testing.T) {
		mock := &MockCompiler{ReturnOut: &model.PhaseOutput{}}
		h := handler.NewCompileHandler(mock, logger)

		rr, _ := postCompile(t, h, ``)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.True(t, mock.Called)
	})

	t.Run("compiler diagnostic is the only key", func(t *testing.T) {
		mock := &MockCompiler{ReturnErr: apperror.Diagnostic("syntax error at line 3", 1)}
		h := handler.NewCompileHandler(mock, logger)

		rr, res := postCompile(t, h, `{"code":"print("}`)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, map[string]any{"error": "syntax error at line 3"}, res)
	})

	t.Run("every apperror kind uses its message", func(t *testing.T) {
		for _, appErr := range []*apperror.AppError{
			apperror.SpawnFailed("exec: no such file"),
			apperror.OutputOverflow(10),
			apperror.Busy(),
			apperror.ArtifactFailed("write", errors.New("/tmp/secret: disk full")),
		} {
			mock := &MockCompiler{ReturnErr: appErr}
			h := handler.NewCompileHandler(mock, logger)

			rr, res := postCompile(t, h, `{"code":"x"}`)

			assert.Equal(t, http.StatusOK, rr.Code)
			assert.Equal(t, map[string]any{"error": appErr.Message}, res)
			assert.NotContains(t, res["error"], "/tmp/secret")
		}
	})

	t.Run("unclassified error is hidden", func(t *testing.T) {
		mock := &MockCompiler{ReturnErr: errors.New("open /etc/gran: permission denied")}
		h := handler.NewCompileHandler(mock, logger)

		rr, res := postCompile(t, h, `{"code":"x"}`)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, map[string]any{"error": "An internal error occurred"}, res)
	})

	t.Run("invalid request body", func(t *testing.T) {
		mock := &MockCompiler{}
		h := handler.NewCompileHandler(mock, logger)

		rr, res := postCompile(t, h, `{"invalid_json":`)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, map[string]any{"error": "invalid request body"}, res)
		assert.False(t, mock.Called)
	})

	t.Run("oversized body is rejected before compiling", func(t *testing.T) {
		mock := &MockCompiler{}
		h := handler.NewCompileHandler(mock, logger)

		body := `{"code":"` + strings.Repeat("a", 2<<20) + `"}`
		_, res := postCompile(t, h, body)

		assert.Contains(t, res, "error")
		assert.False(t, mock.Called)
	})
}

func TestPlaygroundHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	t.Run("renders all four panes", func(t *testing.T) {
		h, err := handler.NewPlaygroundHandler(filepath.Join("..", "..", "web", "templates"), logger)
		require.NoError(t, err)

		rr := httptest.NewRecorder()
		h.HandlePlayground(rr, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		body := rr.Body.String()
		for _, id := range []string{"lexerOutput", "parserOutput", "irOutput", "finalOutput"} {
			assert.Contains(t, body, `id="`+id+`"`)
		}
		assert.Contains(t, body, `data-endpoint="/compile"`)
	})

	t.Run("missing templates fail at construction", func(t *testing.T) {
		_, err := handler.NewPlaygroundHandler(t.TempDir(), logger)
		assert.Error(t, err)
	})
}
