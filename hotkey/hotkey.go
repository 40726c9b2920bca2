// Package hotkey listens for the global push-to-talk key.
package hotkey

import (
	"errors"
	"strings"
	"sync/atomic"

	hook "github.com/robotn/gohook"

	"github.com/voxd/voxd/config"
)

// Event is a push-to-talk key transition.
type Event int

const (
	// Pressed fires once when the key goes down.
	Pressed Event = iota
	// Released fires once when the key comes back up.
	Released
)

// Listener delivers key transitions for the configured hotkey.
type Listener interface {
	// Start begins listening and returns the event channel. The
	// channel is closed when the underlying hook shuts down.
	Start() (<-chan Event, error)
	// Stop releases the global hook.
	Stop()
}

// New creates a listener for the configured key.
func New(cfg config.HotkeyConfig) (Listener, error) {
	key := strings.ToLower(strings.TrimSpace(cfg.Key))
	if key == "" {
		return nil, errors.New("hotkey key is required")
	}
	return &gohookListener{key: key}, nil
}

// gohookListener adapts the gohook global keyboard hook. Holding a key
// repeats down events, so transitions are deduplicated into a single
// Pressed/Released pair per hold.
type gohookListener struct {
	key     string
	events  chan Event
	pressed atomic.Bool
}

func (l *gohookListener) Start() (<-chan Event, error) {
	l.events = make(chan Event, 8)

	hook.Register(hook.KeyDown, []string{l.key}, l.onDown)
	hook.Register(hook.KeyHold, []string{l.key}, l.onDown)
	hook.Register(hook.KeyUp, []string{l.key}, l.onUp)

	raw := hook.Start()
	go func() {
		<-hook.Process(raw)
		close(l.events)
	}()

	return l.events, nil
}

func (l *gohookListener) onDown(hook.Event) {
	if l.pressed.CompareAndSwap(false, true) {
		l.emit(Pressed)
	}
}

func (l *gohookListener) onUp(hook.Event) {
	if l.pressed.CompareAndSwap(true, false) {
		l.emit(Released)
	}
}

// emit never blocks the hook callback; if the daemon is wedged the
// transition is dropped rather than stalling the global hook.
func (l *gohookListener) emit(ev Event) {
	select {
	case l.events <- ev:
	default:
	}
}

func (l *gohookListener) Stop() {
	hook.End()
}
