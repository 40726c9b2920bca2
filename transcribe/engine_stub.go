//go:build !whisper_cpp

package transcribe

import "github.com/voxd/voxd/config"

// Default stub (no cgo) so the project builds without the whisper_cpp
// tag. It accepts audio and produces empty transcripts.
type stubEngine struct{}

func loadEngine(cfg config.WhisperConfig) (engine, error) {
	return stubEngine{}, nil
}

func (stubEngine) transcribe(samples []float32) (string, error) { return "", nil }
func (stubEngine) close() error                                 { return nil }
