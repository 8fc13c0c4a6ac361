// Package models contains shared data models used across the DocMark codebase.
package models

import "context"

// Converter is the interface the black-box document conversion capability
// must implement. The governance layer never calls a specific backend
// directly — always inject this interface.
type Converter interface {
	// Convert turns a single input into Markdown.
	Convert(ctx context.Context, input ConversionInput) (*ConversionResult, error)
	// Name returns the backend identifier (e.g., "markitdown").
	Name() string
}

// InputKind selects which conversion variant a ConversionInput carries.
type InputKind string

const (
	KindFile InputKind = "file"
	KindText InputKind = "text"
	KindURL  InputKind = "url"
)

// ConversionInput is the input to one conversion operation.
type ConversionInput struct {
	Kind InputKind
	// Filename is set for file inputs; its extension drives format detection.
	Filename string
	// Content holds the payload for file and text inputs.
	Content []byte
	// URL is the source for url inputs.
	URL string
	// Options are passed through to the backend untouched.
	Options map[string]string
}

// ConversionResult is a successful conversion.
type ConversionResult struct {
	Markdown string
	// SourceFormat is the detected input format, when the backend reports it.
	SourceFormat string
}
