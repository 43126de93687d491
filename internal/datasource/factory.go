package datasource

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/fairway-edge/internal/config"
)

// SourceType represents the type of data source
type SourceType string

const (
	// DataGolfSourceType is the DataGolf-style JSON feed
	DataGolfSourceType SourceType = dataGolfSource
)

// NewProvider creates the configured upstream provider
func NewProvider(cfg config.ProviderConfig, logger *logrus.Logger) (Provider, error) {
	switch SourceType(cfg.Name) {
	case DataGolfSourceType, "":
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("provider base url is required")
		}
		return NewDataGolfClient(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown data source: %s", cfg.Name)
	}
}
