package convert

import "github.com/docmark/docmark/pkg/models"

// The sentinel values are defined in pkg/models so provider subpackages can
// reference them without importing this package (which imports them back
// through the factory). These aliases preserve the convert.Err* names.
var (
	ErrUnsupportedFormat    = models.ErrUnsupportedFormat
	ErrEmptyResult          = models.ErrEmptyResult
	ErrSourceFetch          = models.ErrSourceFetch
	ErrConverterUnavailable = models.ErrConverterUnavailable
	ErrConversionTimeout    = models.ErrConversionTimeout
)
