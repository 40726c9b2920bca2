package output

import (
	"fmt"
	"io"
	"os"

	"github.com/atotto/clipboard"
)

// clipboardBackend places the text on the system clipboard.
type clipboardBackend struct{}

func newClipboardBackend() Backend { return clipboardBackend{} }

func (clipboardBackend) Name() string { return "clipboard" }

func (clipboardBackend) Write(text string) error {
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("set clipboard: %w", err)
	}
	return nil
}

// stdoutBackend prints the text, one utterance per line. Useful for
// piping the daemon into other tools and as the last-resort fallback.
type stdoutBackend struct {
	w io.Writer
}

func newStdoutBackend() Backend { return &stdoutBackend{w: os.Stdout} }

func (*stdoutBackend) Name() string { return "stdout" }

func (b *stdoutBackend) Write(text string) error {
	_, err := fmt.Fprintln(b.w, text)
	return err
}
