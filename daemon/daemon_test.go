package daemon

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/voxd/voxd/audio"
	"github.com/voxd/voxd/config"
	"github.com/voxd/voxd/hotkey"
	"github.com/voxd/voxd/output"
)

type fakeListener struct {
	ch      chan hotkey.Event
	stopped atomic.Bool
}

func newFakeListener() *fakeListener {
	return &fakeListener{ch: make(chan hotkey.Event, 8)}
}

func (l *fakeListener) Start() (<-chan hotkey.Event, error) { return l.ch, nil }
func (l *fakeListener) Stop()                               { l.stopped.Store(true) }

type fakeCapture struct {
	mu       sync.Mutex
	samples  []float32
	startErr error
	started  bool
	stopped  bool
}

func (c *fakeCapture) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.startErr != nil {
		return c.startErr
	}
	c.started = true
	return nil
}

func (c *fakeCapture) Stop() ([]float32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	return c.samples, nil
}

func (c *fakeCapture) isStarted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.started
}

func (c *fakeCapture) isStopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}

type fakeTranscriber struct {
	text  string
	err   error
	delay time.Duration
	calls atomic.Int32
}

func (f *fakeTranscriber) Transcribe(samples []float32) (string, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.text, f.err
}

type fakeOutput struct {
	mu    sync.Mutex
	texts []string
}

func (f *fakeOutput) Name() string { return "fake" }
func (f *fakeOutput) Write(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeOutput) delivered() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

type fixture struct {
	daemon    *Daemon
	listener  *fakeListener
	capture   *fakeCapture
	tr        *fakeTranscriber
	out       *fakeOutput
	statePath string
	captures  atomic.Int32

	cancel   context.CancelFunc
	done     chan error
	stopOnce sync.Once
}

func newFixture(t *testing.T, tr *fakeTranscriber, capture *fakeCapture) *fixture {
	t.Helper()

	statePath := filepath.Join(t.TempDir(), "state")
	cfg := config.Default()
	cfg.StateFile = statePath
	cfg.History.Enabled = false

	f := &fixture{
		listener:  newFakeListener(),
		capture:   capture,
		tr:        tr,
		out:       &fakeOutput{},
		statePath: statePath,
	}
	f.daemon = &Daemon{
		cfg:      cfg,
		listener: f.listener,
		newCapture: func() (audio.Capturer, error) {
			f.captures.Add(1)
			return capture, nil
		},
		transcriber: tr,
		outputs:     []output.Backend{f.out},
		notify:      func(title, body string) {},
		states:      newStateFile(statePath),
		tick:        5 * time.Millisecond,
		maxDuration: time.Second,
	}
	return f
}

func (f *fixture) start(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	f.done = make(chan error, 1)
	go func() { f.done <- f.daemon.Run(ctx) }()
	t.Cleanup(func() { f.stop(t) })
}

func (f *fixture) stop(t *testing.T) {
	t.Helper()
	f.stopOnce.Do(func() {
		f.cancel()
		select {
		case err := <-f.done:
			if err != nil {
				t.Errorf("Run returned error: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("daemon did not shut down")
		}
	})
}

func (f *fixture) stateFileContent(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(f.statePath)
	if err != nil {
		return ""
	}
	return string(data)
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal(msg)
}

func seconds(s float64) []float32 {
	return make([]float32, int(s*16000))
}

// Scenario: press, two seconds of audio, release, text delivered,
// back to idle.
func TestUtteranceDeliversText(t *testing.T) {
	capture := &fakeCapture{samples: seconds(2)}
	f := newFixture(t, &fakeTranscriber{text: "hello world"}, capture)
	f.start(t)

	f.listener.ch <- hotkey.Pressed
	eventually(t, capture.isStarted, "capture never started")
	eventually(t, func() bool { return f.stateFileContent(t) == "recording" }, "state file never said recording")

	f.listener.ch <- hotkey.Released
	eventually(t, func() bool {
		texts := f.out.delivered()
		return len(texts) == 1 && texts[0] == "hello world"
	}, "text was not delivered")
	eventually(t, func() bool { return f.stateFileContent(t) == "idle" }, "state never returned to idle")
}

// Scenario: a 0.1 s recording is discarded without transcription.
func TestShortRecordingDiscarded(t *testing.T) {
	capture := &fakeCapture{samples: seconds(0.1)}
	tr := &fakeTranscriber{text: "should never appear"}
	f := newFixture(t, tr, capture)
	f.start(t)

	f.listener.ch <- hotkey.Pressed
	eventually(t, capture.isStarted, "capture never started")
	f.listener.ch <- hotkey.Released

	eventually(t, func() bool { return f.stateFileContent(t) == "idle" }, "state never returned to idle")
	if tr.calls.Load() != 0 {
		t.Fatal("transcription was attempted for a too-short recording")
	}
	if len(f.out.delivered()) != 0 {
		t.Fatal("output was invoked for a discarded utterance")
	}
}

// Scenario: the transcriber surfaces a worker error; the daemon logs
// it, resets to idle and keeps running.
func TestTranscriptionErrorResolvesToIdle(t *testing.T) {
	capture := &fakeCapture{samples: seconds(1)}
	tr := &fakeTranscriber{err: errors.New("model not found")}
	f := newFixture(t, tr, capture)
	f.start(t)

	f.listener.ch <- hotkey.Pressed
	eventually(t, capture.isStarted, "capture never started")
	f.listener.ch <- hotkey.Released

	eventually(t, func() bool { return tr.calls.Load() == 1 }, "transcriber never called")
	eventually(t, func() bool { return f.stateFileContent(t) == "idle" }, "state never returned to idle")
	if len(f.out.delivered()) != 0 {
		t.Fatal("output was invoked despite transcription failure")
	}

	// The loop must still accept new utterances.
	f.listener.ch <- hotkey.Pressed
	eventually(t, func() bool { return f.captures.Load() == 2 }, "daemon stopped accepting recordings")
}

// Scenario: recording exceeds the maximum duration; capture is force
// stopped with no transcription attempt.
func TestRecordingTimeout(t *testing.T) {
	capture := &fakeCapture{samples: seconds(5)}
	tr := &fakeTranscriber{text: "too late"}
	f := newFixture(t, tr, capture)
	f.daemon.maxDuration = 30 * time.Millisecond
	f.start(t)

	f.listener.ch <- hotkey.Pressed
	eventually(t, capture.isStarted, "capture never started")

	eventually(t, capture.isStopped, "capture was not force-stopped")
	eventually(t, func() bool { return f.stateFileContent(t) == "idle" }, "state never returned to idle")
	if tr.calls.Load() != 0 {
		t.Fatal("transcription was attempted after a timeout")
	}
}

func TestEmptyTranscriptNotDelivered(t *testing.T) {
	capture := &fakeCapture{samples: seconds(1)}
	f := newFixture(t, &fakeTranscriber{text: ""}, capture)
	f.start(t)

	f.listener.ch <- hotkey.Pressed
	eventually(t, capture.isStarted, "capture never started")
	f.listener.ch <- hotkey.Released

	eventually(t, func() bool { return f.tr.calls.Load() == 1 }, "transcriber never called")
	eventually(t, func() bool { return f.stateFileContent(t) == "idle" }, "state never returned to idle")
	if len(f.out.delivered()) != 0 {
		t.Fatal("empty transcript was delivered")
	}
}

func TestPressWhileBusyIgnored(t *testing.T) {
	capture := &fakeCapture{samples: seconds(1)}
	f := newFixture(t, &fakeTranscriber{text: "ok", delay: 50 * time.Millisecond}, capture)
	f.start(t)

	f.listener.ch <- hotkey.Pressed
	eventually(t, capture.isStarted, "capture never started")

	// Re-entrant press while recording: no second capture.
	f.listener.ch <- hotkey.Pressed
	f.listener.ch <- hotkey.Released

	// Press while transcribing: still no second capture.
	f.listener.ch <- hotkey.Pressed

	eventually(t, func() bool { return len(f.out.delivered()) == 1 }, "utterance never completed")
	if n := f.captures.Load(); n != 1 {
		t.Fatalf("capture created %d times, want 1", n)
	}
}

// A key release can arrive while a transcription is already in flight
// (press-while-busy is ignored, but its matching release still fires).
// The pending result must survive it: text delivered, back to idle.
func TestStrayReleaseKeepsInFlightTranscription(t *testing.T) {
	capture := &fakeCapture{samples: seconds(1)}
	tr := &fakeTranscriber{text: "still here", delay: 100 * time.Millisecond}
	f := newFixture(t, tr, capture)
	f.start(t)

	f.listener.ch <- hotkey.Pressed
	eventually(t, capture.isStarted, "capture never started")
	f.listener.ch <- hotkey.Released
	eventually(t, func() bool { return tr.calls.Load() == 1 }, "transcriber never called")

	// Press and release mid-transcription.
	f.listener.ch <- hotkey.Pressed
	f.listener.ch <- hotkey.Released

	eventually(t, func() bool {
		texts := f.out.delivered()
		return len(texts) == 1 && texts[0] == "still here"
	}, "in-flight transcription result was lost after stray release")
	eventually(t, func() bool { return f.stateFileContent(t) == "idle" }, "state never returned to idle")

	// And the loop still takes the next utterance.
	f.listener.ch <- hotkey.Pressed
	eventually(t, func() bool { return f.captures.Load() == 2 }, "daemon wedged after stray release")
}

func TestCaptureStartFailureStaysIdle(t *testing.T) {
	capture := &fakeCapture{startErr: errors.New("device busy")}
	tr := &fakeTranscriber{}
	f := newFixture(t, tr, capture)
	f.start(t)

	f.listener.ch <- hotkey.Pressed
	eventually(t, func() bool { return f.captures.Load() == 1 }, "capture factory never called")

	// Still idle: a release does nothing and a new press retries.
	f.listener.ch <- hotkey.Released
	f.listener.ch <- hotkey.Pressed
	eventually(t, func() bool { return f.captures.Load() == 2 }, "daemon did not retry after start failure")
	if f.stateFileContent(t) != "idle" {
		t.Fatalf("state = %q, want idle", f.stateFileContent(t))
	}
}

func TestShutdownDrainsInFlightTranscription(t *testing.T) {
	capture := &fakeCapture{samples: seconds(1)}
	tr := &fakeTranscriber{text: "late result", delay: 80 * time.Millisecond}
	f := newFixture(t, tr, capture)
	f.start(t)

	f.listener.ch <- hotkey.Pressed
	eventually(t, capture.isStarted, "capture never started")
	f.listener.ch <- hotkey.Released
	eventually(t, func() bool { return tr.calls.Load() == 1 }, "transcriber never called")

	// Shut down mid-transcription: Run must wait for the in-flight
	// call, then exit cleanly without delivering its text.
	f.stop(t)

	if len(f.out.delivered()) != 0 {
		t.Fatal("text delivered after shutdown was requested")
	}
	if !f.listener.stopped.Load() {
		t.Fatal("listener was not stopped on shutdown")
	}
	if _, err := os.Stat(f.statePath); !os.IsNotExist(err) {
		t.Fatal("state file was not removed on shutdown")
	}
}

func TestStateFileDisabledWhenUnset(t *testing.T) {
	sf := newStateFile("")
	sf.set("recording") // must be a no-op, not a panic
	sf.cleanup()
}
