package transcribe

import (
	"fmt"

	"github.com/voxd/voxd/config"
)

// InProcessTranscriber holds the inference engine loaded in the
// daemon's own process. Lowest latency, but accelerator memory stays
// allocated between utterances; use the subprocess variant when that
// matters.
type InProcessTranscriber struct {
	eng engine
}

// NewInProcess loads the model once, up front. A load failure here is
// an initialization error and aborts daemon startup.
func NewInProcess(cfg config.WhisperConfig) (*InProcessTranscriber, error) {
	eng, err := newEngine(cfg)
	if err != nil {
		return nil, fmt.Errorf("load engine: %w", err)
	}
	return &InProcessTranscriber{eng: eng}, nil
}

func (t *InProcessTranscriber) Transcribe(samples []float32) (string, error) {
	if len(samples) == 0 {
		return "", ErrEmptyAudio
	}
	return t.eng.transcribe(samples)
}

// Close releases the engine.
func (t *InProcessTranscriber) Close() error {
	return t.eng.close()
}
