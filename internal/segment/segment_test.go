package segment_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sakif/gran-playground/internal/segment"
)

const fullStream = "Starting compilation...\n" +
	"Lexical analysis complete. Tokens:\n  NUMBER 1\n  PLUS\n  NUMBER 1\n\n" +
	"Parsing complete. Statements:\n  Print(Binary(1 + 1))\n\n" +
	"IR dump:\ndefine i32 @main() {\n  ret i32 0\n}\n\n" +
	"IR generation complete\n" +
	"Running program...\n" +
	"Program execution complete\n"

func TestSection(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		start string
		end   string
		want  string
	}{
		{
			name:  "text between markers is trimmed",
			text:  "A\n  body  \nB",
			start: "A",
			end:   "B",
			want:  "body",
		},
		{
			name:  "missing start yields empty",
			text:  "nothing to see\nB",
			start: "A",
			end:   "B",
			want:  "",
		},
		{
			name:  "missing end runs to end of text",
			text:  "A\ntail text\n",
			start: "A",
			end:   "B",
			want:  "tail text",
		},
		{
			name:  "end before start is ignored",
			text:  "B\nA\nbody\n",
			start: "A",
			end:   "B",
			want:  "body",
		},
		{
			name:  "duplicate start takes the first",
			text:  "A one B A two B",
			start: "A",
			end:   "B",
			want:  "one",
		},
		{
			name:  "duplicate end takes the first after start",
			text:  "A one B two B",
			start: "A",
			end:   "B",
			want:  "one",
		},
		{
			name:  "adjacent markers yield empty",
			text:  "AB",
			start: "A",
			end:   "B",
			want:  "",
		},
		{
			name:  "empty text",
			text:  "",
			start: "A",
			end:   "B",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, segment.Section(tt.text, tt.start, tt.end))
		})
	}
}

func TestExtract_GranProtocol(t *testing.T) {
	t.Run("all markers present", func(t *testing.T) {
		got := segment.Extract(fullStream, segment.GranProtocol)

		assert.Equal(t, []string{
			"Tokens:\n  NUMBER 1\n  PLUS\n  NUMBER 1",
			"Statements:\n  Print(Binary(1 + 1))",
			"define i32 @main() {\n  ret i32 0\n}\n\nIR generation complete",
		}, got)
	})

	t.Run("minimal stream", func(t *testing.T) {
		stream := "Lexical analysis complete.\nTOK1\nParsing complete.\nAST1\nIR dump:\nIR1\nRunning program...\n"

		got := segment.Extract(stream, segment.GranProtocol)

		assert.Equal(t, []string{"TOK1", "AST1", "IR1"}, got)
	})

	t.Run("compiler stopped after parsing", func(t *testing.T) {
		stream := "Lexical analysis complete.\nTOK1\nParsing complete.\nAST1\n"

		got := segment.Extract(stream, segment.GranProtocol)

		assert.Equal(t, []string{"TOK1", "AST1", ""}, got)
	})

	t.Run("no markers at all", func(t *testing.T) {
		got := segment.Extract("segmentation fault", segment.GranProtocol)

		assert.Equal(t, []string{"", "", ""}, got)
	})

	t.Run("empty boundary list", func(t *testing.T) {
		got := segment.Extract(fullStream, nil)

		assert.Empty(t, got)
	})
}

func TestExtract_Idempotent(t *testing.T) {
	first := segment.Extract(fullStream, segment.GranProtocol)
	second := segment.Extract(fullStream, segment.GranProtocol)

	assert.Equal(t, first, second)

	// The boundary table must not be touched by extraction.
	assert.Equal(t, "Lexical analysis complete.", segment.GranProtocol[0].Start)
	assert.Len(t, segment.GranProtocol, 3)
}

func TestPhases(t *testing.T) {
	phases := segment.Phases("Lexical analysis complete.\nTOK1\n", segment.GranProtocol)

	assert.Equal(t, map[string]string{
		segment.PhaseLexer:  "TOK1",
		segment.PhaseParser: "",
		segment.PhaseIR:     "",
	}, phases)
}
