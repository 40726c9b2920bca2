package daemon

import "time"

// Phase identifies the daemon's position in the utterance cycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseRecording
	PhaseTranscribing
	PhaseOutputting
)

// String returns the external name mirrored to the state file.
func (p Phase) String() string {
	switch p {
	case PhaseRecording:
		return "recording"
	case PhaseTranscribing:
		return "transcribing"
	case PhaseOutputting:
		return "outputting"
	default:
		return "idle"
	}
}

// State is the session state variant. Exactly one instance lives in
// the event loop; it is never shared across goroutines and only the
// loop's own control flow mutates it.
type State struct {
	phase     Phase
	startedAt time.Time // recording start
	audio     []float32 // buffer handed to the transcriber
	text      string    // text being delivered
}

// Idle is the initial and terminal-safe state.
func Idle() State { return State{phase: PhaseIdle} }

// Recording marks an active capture started at startedAt.
func Recording(startedAt time.Time) State {
	return State{phase: PhaseRecording, startedAt: startedAt}
}

// Transcribing marks an in-flight transcription of audio.
func Transcribing(audio []float32) State {
	return State{phase: PhaseTranscribing, audio: audio}
}

// Outputting marks text delivery in progress.
func Outputting(text string) State {
	return State{phase: PhaseOutputting, text: text}
}

func (s State) Phase() Phase      { return s.phase }
func (s State) IsIdle() bool      { return s.phase == PhaseIdle }
func (s State) IsRecording() bool { return s.phase == PhaseRecording }
func (s State) Audio() []float32  { return s.audio }
func (s State) Text() string      { return s.text }

// RecordingDuration reports how long the capture has been running,
// or zero when not recording.
func (s State) RecordingDuration(now time.Time) time.Duration {
	if s.phase != PhaseRecording {
		return 0
	}
	return now.Sub(s.startedAt)
}
