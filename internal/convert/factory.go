package convert

import (
	"fmt"

	"github.com/docmark/docmark/internal/config"
	"github.com/docmark/docmark/internal/convert/markitdown"
	"github.com/docmark/docmark/pkg/models"
)

// NewConverter constructs the configured conversion backend based on config.
// Called once at server startup.
func NewConverter(cfg config.ConverterConfig) (models.Converter, error) {
	switch cfg.Provider {
	case "markitdown":
		return markitdown.NewConverter(cfg.Markitdown), nil
	default:
		return nil, fmt.Errorf("unknown converter provider %q", cfg.Provider)
	}
}
