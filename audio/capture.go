// Package audio provides microphone capture for transcription.
//
// Captured audio is mono float32 PCM at the configured sample rate
// (16 kHz for whisper). One Capture records one utterance: Start
// acquires the device, Stop releases it and hands back everything
// recorded in between.
package audio

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"

	"github.com/voxd/voxd/config"
)

// ErrNotCapturing is returned when stopping a capture that never started.
var ErrNotCapturing = errors.New("not capturing audio")

// ErrAlreadyCapturing is returned when starting a capture twice.
var ErrAlreadyCapturing = errors.New("already capturing audio")

const framesPerBuffer = 512

// PortAudio keeps process-wide state; initialize it once and leave it
// up for the daemon's lifetime.
var (
	paOnce    sync.Once
	paInitErr error
)

// Capturer records one utterance from the microphone.
type Capturer interface {
	Start() error
	Stop() ([]float32, error)
}

// Capture is the PortAudio-backed Capturer.
type Capture struct {
	mu sync.Mutex

	sampleRate int
	maxSamples int

	stream    *portaudio.Stream
	samples   []float32
	capturing bool
}

// New creates a capture sized for the configured maximum duration.
// The audio device is not touched until Start.
func New(cfg config.AudioConfig) (*Capture, error) {
	rate := cfg.SampleRate
	if rate <= 0 {
		rate = 16000
	}
	maxSecs := cfg.MaxDurationSecs
	if maxSecs <= 0 {
		maxSecs = 60
	}

	return &Capture{
		sampleRate: rate,
		maxSamples: rate * maxSecs,
	}, nil
}

// Start acquires the default input device and begins recording.
func (c *Capture) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capturing {
		return ErrAlreadyCapturing
	}

	paOnce.Do(func() { paInitErr = portaudio.Initialize() })
	if paInitErr != nil {
		return fmt.Errorf("initialize portaudio: %w", paInitErr)
	}

	c.samples = make([]float32, 0, c.sampleRate) // grow from one second
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(c.sampleRate), framesPerBuffer, c.onInput)
	if err != nil {
		return fmt.Errorf("open input stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("start input stream: %w", err)
	}

	c.stream = stream
	c.capturing = true
	return nil
}

func (c *Capture) onInput(in []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.capturing {
		return
	}
	// Drop anything past the hard ceiling; the daemon's timeout check
	// stops the recording shortly after.
	if room := c.maxSamples - len(c.samples); room < len(in) {
		in = in[:max(room, 0)]
	}
	c.samples = append(c.samples, in...)
}

// Stop releases the device and returns the recorded samples.
// Stopping an already-stopped capture returns ErrNotCapturing.
func (c *Capture) Stop() ([]float32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.capturing {
		return nil, ErrNotCapturing
	}
	c.capturing = false

	stream := c.stream
	c.stream = nil

	var stopErr error
	if err := stream.Stop(); err != nil {
		stopErr = fmt.Errorf("stop input stream: %w", err)
	}
	if err := stream.Close(); err != nil && stopErr == nil {
		stopErr = fmt.Errorf("close input stream: %w", err)
	}

	samples := c.samples
	c.samples = nil
	return samples, stopErr
}

// Duration converts a sample count to wall time at rate.
func Duration(sampleCount, rate int) time.Duration {
	if rate <= 0 {
		return 0
	}
	return time.Duration(sampleCount) * time.Second / time.Duration(rate)
}
