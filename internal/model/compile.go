// Package model defines the data structures used throughout the application.
package model

// CompileRequest is the body of POST /compile.
// A missing "code" field decodes to the empty string, which is valid input.
type CompileRequest struct {
	Code string `json:"code"`
}

// PhaseOutput is the successful response: one text per compiler phase.
//
// No omitempty: the client renders four panes and relies on every key being
// present, even when a phase produced nothing.
type PhaseOutput struct {
	Lexer  string `json:"lexer"`
	Parser string `json:"parser"`
	IR     string `json:"ir"`
	Final  string `json:"final"`
}

// ErrorResponse is the failed response. It is sent with the same HTTP status
// as PhaseOutput; clients tell the two apart by the "error" key.
type ErrorResponse struct {
	Error string `json:"error"`
}
