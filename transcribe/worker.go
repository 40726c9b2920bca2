package transcribe

import (
	"errors"
	"io"
	"log/slog"

	"github.com/voxd/voxd/config"
)

// RunWorker is the entry point of the transcribe-worker subcommand.
// It reads exactly one audio request from stdin, loads the inference
// engine, transcribes, writes exactly one response line to stdout and
// returns. Every failure is answered with a structured error response
// followed by a clean exit; the worker never crashes on bad input.
//
// stdout belongs to the protocol, so all diagnostics go to the
// process logger, which main wires to stderr.
func RunWorker(cfg config.WhisperConfig, stdin io.Reader, stdout io.Writer) error {
	samples, err := ReadRequest(stdin)
	if err != nil {
		slog.Error("rejecting request", "error", err)
		return WriteResponse(stdout, ErrorResponse(requestErrorMessage(err)))
	}

	slog.Info("received audio",
		"samples", len(samples),
		"seconds", float64(len(samples))/SampleRate,
	)

	eng, err := newEngine(cfg)
	if err != nil {
		slog.Error("load engine", "error", err)
		return WriteResponse(stdout, ErrorResponse("load model: "+err.Error()))
	}
	defer eng.close()

	text, err := eng.transcribe(samples)
	if err != nil {
		slog.Error("transcription failed", "error", err)
		return WriteResponse(stdout, ErrorResponse(err.Error()))
	}

	slog.Info("transcription complete", "chars", len(text))
	return WriteResponse(stdout, SuccessResponse(text))
}

func requestErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrEmptyAudio):
		return "empty audio buffer"
	case errors.Is(err, ErrTooManySamples):
		return err.Error()
	default:
		return "read request: " + err.Error()
	}
}
