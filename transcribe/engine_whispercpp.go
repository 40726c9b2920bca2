//go:build whisper_cpp

package transcribe

import (
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	whisperpkg "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/voxd/voxd/config"
)

// cppEngine is the whisper.cpp-backed engine.
type cppEngine struct {
	model     whisperpkg.Model
	language  string
	translate bool
	threads   uint
}

func loadEngine(cfg config.WhisperConfig) (engine, error) {
	modelPath, err := cfg.ResolveModelPath()
	if err != nil {
		return nil, err
	}

	threads := uint(runtime.NumCPU())
	if cfg.Threads > 0 {
		threads = uint(cfg.Threads)
	}

	start := time.Now()
	m, err := whisperpkg.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", modelPath, err)
	}
	slog.Debug("model loaded", "path", modelPath, "elapsed", time.Since(start))

	lang := cfg.Language
	if lang == "" {
		lang = "auto"
	}

	return &cppEngine{
		model:     m,
		language:  lang,
		translate: cfg.Translate,
		threads:   threads,
	}, nil
}

func (e *cppEngine) transcribe(samples []float32) (string, error) {
	ctx, err := e.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("create context: %w", err)
	}

	ctx.SetThreads(e.threads)
	if err := ctx.SetLanguage(e.language); err != nil {
		return "", fmt.Errorf("set language %q: %w", e.language, err)
	}
	ctx.SetTranslate(e.translate)

	if err := ctx.Process(samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("process audio: %w", err)
	}

	var sb strings.Builder
	for {
		seg, err := ctx.NextSegment()
		if err != nil {
			break
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(strings.TrimSpace(seg.Text))
	}
	return strings.TrimSpace(sb.String()), nil
}

func (e *cppEngine) close() error {
	if e.model != nil {
		e.model.Close()
	}
	return nil
}
