// Package daemon runs the push-to-talk orchestration loop.
//
// One goroutine owns the session state and multiplexes every external
// stimulus: hotkey transitions, the recording-timeout tick, completion
// of the in-flight transcription and the shutdown signal. At most one
// stimulus is serviced per iteration and none of them may block the
// others, so transcription runs on its own goroutine (or subprocess)
// and only its completion is selected on.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/voxd/voxd/audio"
	"github.com/voxd/voxd/config"
	"github.com/voxd/voxd/history"
	"github.com/voxd/voxd/hotkey"
	"github.com/voxd/voxd/notify"
	"github.com/voxd/voxd/output"
	"github.com/voxd/voxd/transcribe"
)

// Recordings shorter than this are treated as accidental presses.
const minUtteranceDuration = 300 * time.Millisecond

// How often the recording timeout is checked.
const timeoutTick = 100 * time.Millisecond

// Daemon owns the session state machine and its collaborators.
type Daemon struct {
	cfg *config.Config

	listener    hotkey.Listener
	newCapture  func() (audio.Capturer, error)
	transcriber transcribe.Transcriber
	outputs     []output.Backend
	notify      func(title, body string)
	hist        *history.Store
	states      *stateFile

	tick        time.Duration
	maxDuration time.Duration
}

// utterance is the completion event of one transcription.
type utterance struct {
	id       string
	text     string
	err      error
	duration time.Duration
}

// New wires the daemon from configuration. Collaborator setup failures
// here are initialization errors and abort startup, except for the
// optional history store which degrades to disabled.
func New(cfg *config.Config, configPath string) (*Daemon, error) {
	listener, err := hotkey.New(cfg.Hotkey)
	if err != nil {
		return nil, fmt.Errorf("create hotkey listener: %w", err)
	}

	transcriber, err := transcribe.New(cfg.Whisper, configPath)
	if err != nil {
		return nil, fmt.Errorf("create transcriber: %w", err)
	}

	outputs, err := output.NewChain(cfg.Output)
	if err != nil {
		return nil, fmt.Errorf("create output chain: %w", err)
	}

	var hist *history.Store
	if cfg.History.Enabled {
		dir, err := cfg.History.ResolveHistoryDir()
		if err == nil {
			hist, err = history.Open(dir)
		}
		if err != nil {
			slog.Warn("history disabled", "error", err)
			hist = nil
		}
	}

	return &Daemon{
		cfg:         cfg,
		listener:    listener,
		newCapture:  func() (audio.Capturer, error) { return audio.New(cfg.Audio) },
		transcriber: transcriber,
		outputs:     outputs,
		notify:      notify.Send,
		hist:        hist,
		states:      newStateFile(cfg.StateFile),
		tick:        timeoutTick,
		maxDuration: time.Duration(cfg.Audio.MaxDurationSecs) * time.Second,
	}, nil
}

// Run executes the event loop until ctx is canceled.
func (d *Daemon) Run(ctx context.Context) error {
	slog.Info("starting daemon",
		"hotkey", d.cfg.Hotkey.Key,
		"output", output.ChainNames(d.outputs),
		"backend", d.cfg.Whisper.Backend,
		"max_duration", d.maxDuration,
	)
	if d.cfg.StateFile != "" {
		slog.Info("state file enabled", "path", d.cfg.StateFile)
	}

	events, err := d.listener.Start()
	if err != nil {
		return fmt.Errorf("start hotkey listener: %w", err)
	}
	defer d.listener.Stop()

	d.states.set("idle")
	defer d.states.cleanup()

	ticker := time.NewTicker(d.tick)
	defer ticker.Stop()

	state := Idle()
	var capture audio.Capturer
	var done chan utterance // nil while no transcription is in flight

	slog.Info("listening for hotkey", "key", d.cfg.Hotkey.Key)

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			switch ev {
			case hotkey.Pressed:
				state, capture = d.onPressed(state, capture)
			case hotkey.Released:
				state, capture, done = d.onReleased(state, capture, done)
			}

		case <-ticker.C:
			if !state.IsRecording() {
				continue
			}
			if elapsed := state.RecordingDuration(time.Now()); elapsed > d.maxDuration {
				slog.Warn("recording timeout, stopping", "elapsed", elapsed, "limit", d.maxDuration)
				if capture != nil {
					if _, err := capture.Stop(); err != nil {
						slog.Warn("stop capture after timeout", "error", err)
					}
					capture = nil
				}
				state = d.toIdle()
			}

		case u := <-done:
			done = nil
			state = d.onTranscribed(u)

		case <-ctx.Done():
			slog.Info("received interrupt signal, shutting down")
			if done != nil {
				// Drain the in-flight call so the worker is reaped;
				// its text is deliberately discarded.
				u := <-done
				slog.Debug("discarded in-flight transcription", "utterance", u.id, "error", u.err)
			}
			if capture != nil {
				if _, err := capture.Stop(); err != nil {
					slog.Warn("stop capture on shutdown", "error", err)
				}
			}
			slog.Info("daemon stopped")
			return nil
		}
	}
}

// onPressed starts a recording. Presses in any state but Idle are
// ignored, so no two utterances ever overlap.
func (d *Daemon) onPressed(state State, capture audio.Capturer) (State, audio.Capturer) {
	if !state.IsIdle() {
		slog.Debug("ignoring key press", "state", state.Phase().String())
		return state, capture
	}

	c, err := d.newCapture()
	if err != nil {
		slog.Error("create audio capture", "error", err)
		return state, capture
	}
	if err := c.Start(); err != nil {
		slog.Error("start audio capture", "error", err)
		return state, capture
	}

	slog.Info("recording started")
	if d.cfg.Output.Notification.OnRecordingStart {
		d.notify("Push to Talk Active", "Recording...")
	}
	d.states.set("recording")
	return Recording(time.Now()), c
}

// onReleased stops the capture and dispatches transcription without
// blocking the loop. done is the current in-flight completion channel;
// it is passed through untouched on every path that does not dispatch,
// so a stray release during Transcribing cannot orphan the pending
// result.
func (d *Daemon) onReleased(state State, capture audio.Capturer, done chan utterance) (State, audio.Capturer, chan utterance) {
	if !state.IsRecording() {
		return state, capture, done
	}
	if capture == nil {
		return d.toIdle(), nil, done
	}

	samples, err := capture.Stop()
	if err != nil {
		slog.Warn("stop audio capture", "error", err)
		return d.toIdle(), nil, done
	}

	sampleRate := d.cfg.Audio.SampleRate
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	dur := audio.Duration(len(samples), sampleRate)
	slog.Info("recording stopped", "duration", dur)

	if dur < minUtteranceDuration {
		slog.Debug("recording too short, ignoring", "duration", dur)
		return d.toIdle(), nil, done
	}

	if d.cfg.Audio.SaveDir != "" {
		if path, err := audio.DumpUtterance(d.cfg.Audio.SaveDir, samples, sampleRate); err != nil {
			slog.Warn("save utterance wav", "error", err)
		} else {
			slog.Debug("utterance saved", "path", path)
		}
	}

	if d.cfg.Output.Notification.OnRecordingStop {
		d.notify("Push to Talk Inactive", "Transcribing...")
	}

	id := uuid.NewString()
	slog.Info("transcribing", "utterance", id, "duration", dur)
	d.states.set("transcribing")

	done = make(chan utterance, 1)
	go func() {
		text, err := d.transcriber.Transcribe(samples)
		done <- utterance{id: id, text: text, err: err, duration: dur}
	}()
	return Transcribing(samples), nil, done
}

// onTranscribed finishes one utterance: deliver the text, record it in
// history, return to idle. Every failure here is per-utterance and
// never stops the loop.
func (d *Daemon) onTranscribed(u utterance) State {
	if u.err != nil {
		slog.Error("transcription failed", "utterance", u.id, "error", u.err)
		return d.toIdle()
	}
	if u.text == "" {
		slog.Debug("transcription was empty", "utterance", u.id)
		return d.toIdle()
	}

	slog.Info("transcribed", "utterance", u.id, "chars", len(u.text))

	// Outputting is momentary bookkeeping: it lasts for the delivery
	// below and always resolves to idle. The state file only mirrors
	// idle/recording/transcribing.
	state := Outputting(u.text)
	slog.Debug("delivering", "state", state.Phase().String(), "chars", len(state.Text()))

	if err := output.Deliver(d.outputs, u.text); err != nil {
		slog.Error("output failed", "utterance", u.id, "error", err)
		return d.toIdle()
	}

	if d.hist != nil {
		err := d.hist.Append(history.Entry{
			ID:        u.id,
			Text:      u.text,
			Duration:  u.duration,
			CreatedAt: time.Now(),
		})
		if err != nil {
			slog.Warn("append history", "error", err)
		}
	}

	return d.toIdle()
}

func (d *Daemon) toIdle() State {
	d.states.set("idle")
	return Idle()
}

// Close releases optional resources.
func (d *Daemon) Close() error {
	if d.hist != nil {
		return d.hist.Close()
	}
	return nil
}
