package infrastructure

import (
	"fmt"

	"github.com/yourusername/tunegrab-go/internal/domain"
	"github.com/yourusername/tunegrab-go/pkg/logger"
)

// NewSource builds the configured media source backend. The rest of the
// pipeline only sees the MediaSource interface; backend selection happens
// here, once.
func NewSource(cfg *domain.Config, transcoder domain.Transcoder, eventLogger *logger.MultiLogger) (domain.MediaSource, error) {
	switch cfg.Source.Backend {
	case "native":
		return NewNativeSource(&cfg.Source, transcoder, eventLogger), nil
	case "ytdlp":
		return NewYTDLPSource(&cfg.Source, cfg.Output.LogsDir, eventLogger), nil
	default:
		return nil, fmt.Errorf("unknown source backend: %s", cfg.Source.Backend)
	}
}
