// Package transcribe converts recorded audio into text.
//
// Two local variants exist: an in-process transcriber that keeps the
// model loaded for the daemon's lifetime, and a subprocess transcriber
// that spawns a short-lived worker per utterance so accelerator memory
// is reclaimed by process exit. A third variant forwards audio to a
// Whisper-compatible HTTP API.
package transcribe

import (
	"fmt"

	"github.com/voxd/voxd/config"
)

// Transcriber converts 16 kHz mono float32 samples into text.
type Transcriber interface {
	Transcribe(samples []float32) (string, error)
}

// New selects the transcriber variant from configuration. configPath
// is forwarded to worker processes so they resolve the same settings;
// it may be empty.
func New(cfg config.WhisperConfig, configPath string) (Transcriber, error) {
	switch cfg.Backend {
	case "", "subprocess":
		return NewSubprocess(cfg, configPath)
	case "inprocess":
		return NewInProcess(cfg)
	case "api":
		return NewAPI(cfg)
	default:
		return nil, fmt.Errorf("unknown whisper backend: %q", cfg.Backend)
	}
}
