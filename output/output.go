// Package output delivers transcribed text to the desktop.
//
// Backends are tried in order: the first one that succeeds wins, and
// failures only demote to the next backend in the chain.
package output

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/voxd/voxd/config"
)

// ErrAllBackendsFailed is returned when no backend delivered the text.
var ErrAllBackendsFailed = errors.New("all output backends failed")

// Backend delivers one piece of text.
type Backend interface {
	Name() string
	Write(text string) error
}

// NewChain builds the ordered backend chain for the configured mode.
func NewChain(cfg config.OutputConfig) ([]Backend, error) {
	switch cfg.Mode {
	case "paste":
		return []Backend{newPasteBackend(), newClipboardBackend()}, nil
	case "", "clipboard":
		return []Backend{newClipboardBackend()}, nil
	case "stdout":
		return []Backend{newStdoutBackend()}, nil
	default:
		return nil, fmt.Errorf("unknown output mode: %q", cfg.Mode)
	}
}

// Deliver tries each backend in order until one succeeds.
func Deliver(backends []Backend, text string) error {
	for _, b := range backends {
		if err := b.Write(text); err != nil {
			slog.Warn("output backend failed", "backend", b.Name(), "error", err)
			continue
		}
		slog.Debug("text delivered", "backend", b.Name(), "chars", len(text))
		return nil
	}
	return ErrAllBackendsFailed
}

// ChainNames describes the chain for startup logging.
func ChainNames(backends []Backend) string {
	names := ""
	for i, b := range backends {
		if i > 0 {
			names += " -> "
		}
		names += b.Name()
	}
	return names
}
