package transcribe

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
)

// SampleRate is the fixed PCM rate of every audio buffer crossing the
// worker boundary: 16 kHz mono float32.
const SampleRate = 16000

// MaxSamples bounds the request payload to ten minutes of audio
// (~38 MB) so a malformed header cannot make the worker allocate
// arbitrary memory.
const MaxSamples = SampleRate * 60 * 10

var (
	// ErrEmptyAudio is returned for a zero-length sample buffer.
	ErrEmptyAudio = errors.New("empty audio buffer")

	// ErrTooManySamples is returned when a request exceeds MaxSamples.
	ErrTooManySamples = errors.New("sample count exceeds limit")
)

// WriteRequest encodes samples onto w in the worker wire format:
// a little-endian uint32 sample count followed by that many
// little-endian IEEE-754 float32 values.
func WriteRequest(w io.Writer, samples []float32) error {
	if len(samples) > MaxSamples {
		return fmt.Errorf("%w: %d (max %d)", ErrTooManySamples, len(samples), MaxSamples)
	}

	buf := make([]byte, 4+4*len(samples))
	binary.LittleEndian.PutUint32(buf, uint32(len(samples)))
	for i, s := range samples {
		binary.LittleEndian.PutUint32(buf[4+4*i:], math.Float32bits(s))
	}

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("write request: %w", err)
	}
	return nil
}

// ReadRequest decodes one request from r. The count is validated
// before any sample memory is allocated.
func ReadRequest(r io.Reader) ([]float32, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("read sample count: %w", err)
	}

	count := binary.LittleEndian.Uint32(header[:])
	if count == 0 {
		return nil, ErrEmptyAudio
	}
	if count > MaxSamples {
		return nil, fmt.Errorf("%w: %d (max %d)", ErrTooManySamples, count, MaxSamples)
	}

	raw := make([]byte, 4*count)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("read audio samples: %w", err)
	}

	samples := make([]float32, count)
	for i := range samples {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
	}
	return samples, nil
}

// WorkerResponse is the single structured line a worker writes to its
// stdout. OK discriminates the variant: a success carries Text (which
// may be empty but is always present), a failure carries Error.
type WorkerResponse struct {
	OK    bool    `json:"ok"`
	Text  *string `json:"text,omitempty"`
	Error string  `json:"error,omitempty"`
}

// SuccessResponse builds a success response carrying text.
func SuccessResponse(text string) WorkerResponse {
	return WorkerResponse{OK: true, Text: &text}
}

// ErrorResponse builds a failure response carrying a message.
func ErrorResponse(msg string) WorkerResponse {
	return WorkerResponse{OK: false, Error: msg}
}

// WriteResponse writes the response as one JSON line.
func WriteResponse(w io.Writer, resp WorkerResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}
	if _, err := fmt.Fprintf(w, "%s\n", data); err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	return nil
}

// ParseResponse extracts the worker response from the captured stdout.
// Workers are expected to write exactly one line, but only the final
// non-empty line is treated as authoritative so stray diagnostics on
// stdout do not break the protocol.
func ParseResponse(output string) (WorkerResponse, error) {
	var last string
	for _, line := range strings.Split(output, "\n") {
		if strings.TrimSpace(line) != "" {
			last = line
		}
	}
	if last == "" {
		return WorkerResponse{}, errors.New("worker produced no response")
	}

	var resp WorkerResponse
	if err := json.Unmarshal([]byte(last), &resp); err != nil {
		return WorkerResponse{}, fmt.Errorf("parse worker response: %w (line: %q)", err, last)
	}
	return resp, nil
}
