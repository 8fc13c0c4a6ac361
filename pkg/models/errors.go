package models

import "errors"

// Conversion sentinel errors. They live in pkg/models, like the Converter
// interface, so the convert factory and its provider packages can share them
// without an import cycle; internal/convert re-exports them under its own name.
var (
	ErrUnsupportedFormat    = errors.New("unsupported input format")
	ErrEmptyResult          = errors.New("conversion produced empty content")
	ErrSourceFetch          = errors.New("failed to fetch source url")
	ErrConverterUnavailable = errors.New("converter unavailable")
	ErrConversionTimeout    = errors.New("conversion timed out")
)
