package cli

import (
	"io"
	"log/slog"

	"github.com/aretw0/chatflow/internal/config"
	"github.com/aretw0/chatflow/internal/logging"
)

// NewLogger builds the process logger from the configuration. Logs always go to w (stderr in
// practice) so stdout stays free for chat output and JSON-RPC.
func NewLogger(cfg config.Config, w io.Writer) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	if cfg.LogJSON {
		return logging.NewJSON(w, level), nil
	}
	return logging.NewText(w, level), nil
}
