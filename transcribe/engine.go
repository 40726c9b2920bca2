package transcribe

import "github.com/voxd/voxd/config"

// engine is the loaded inference model. The whisper.cpp-backed
// implementation is selected with the whisper_cpp build tag; the
// default build uses a no-op stub so the daemon compiles without cgo.
type engine interface {
	transcribe(samples []float32) (string, error)
	close() error
}

// newEngine loads the inference engine for cfg.
var newEngine = func(cfg config.WhisperConfig) (engine, error) {
	return loadEngine(cfg)
}
