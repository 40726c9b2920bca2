package transcribe

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/voxd/voxd/config"
)

// SubprocessTranscriber spawns one fresh worker process per call.
// Because the worker exits after answering, every accelerator resource
// it touched is reclaimed by the OS between utterances; nothing stays
// resident in the daemon.
type SubprocessTranscriber struct {
	cfg        config.WhisperConfig
	configPath string

	// exePath and args identify the worker command. They default to
	// the current executable with the transcribe-worker subcommand.
	exePath string
	args    []string
}

// NewSubprocess creates a subprocess transcriber that re-invokes the
// current executable as a worker.
func NewSubprocess(cfg config.WhisperConfig, configPath string) (*SubprocessTranscriber, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("find own executable: %w", err)
	}
	return &SubprocessTranscriber{
		cfg:        cfg,
		configPath: configPath,
		exePath:    exe,
		args:       workerArgs(cfg, configPath),
	}, nil
}

func workerArgs(cfg config.WhisperConfig, configPath string) []string {
	args := []string{"transcribe-worker"}
	if configPath != "" {
		args = append(args, "--config", configPath)
	}
	args = append(args, "--model", cfg.Model, "--language", cfg.Language)
	if cfg.Translate {
		args = append(args, "--translate")
	}
	if cfg.Threads > 0 {
		args = append(args, "--threads", strconv.Itoa(cfg.Threads))
	}
	return args
}

// Transcribe runs one full worker lifecycle: spawn, feed audio over
// stdin, collect stdout, reap, resolve the structured response.
func (t *SubprocessTranscriber) Transcribe(samples []float32) (string, error) {
	if len(samples) == 0 {
		return "", ErrEmptyAudio
	}

	var request bytes.Buffer
	if err := WriteRequest(&request, samples); err != nil {
		return "", err
	}

	slog.Debug("spawning worker",
		"samples", len(samples),
		"seconds", float64(len(samples))/SampleRate,
	)
	start := time.Now()

	cmd := exec.Command(t.exePath, t.args...)
	var stdout, stderr bytes.Buffer
	// The pipe closes once the request buffer is drained, which is the
	// worker's end-of-input signal.
	cmd.Stdin = &request
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("spawn transcribe-worker: %w", err)
	}
	waitErr := cmd.Wait()

	resp, parseErr := ParseResponse(stdout.String())

	// A non-zero exit is not itself fatal when a valid response was
	// parsed; it only decides whether the worker's stderr is surfaced.
	if waitErr != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			slog.Warn("worker stderr", "output", msg)
		}
	}

	if parseErr != nil {
		if waitErr != nil {
			return "", fmt.Errorf("worker failed (%v): %w", waitErr, parseErr)
		}
		return "", parseErr
	}

	slog.Debug("worker finished", "elapsed", time.Since(start))

	if !resp.OK {
		if resp.Error == "" {
			return "", errors.New("worker reported an unknown error")
		}
		return "", errors.New(resp.Error)
	}
	if resp.Text == nil {
		return "", errors.New("worker returned ok without text")
	}
	return *resp.Text, nil
}
