package output

import (
	"fmt"
	"runtime"
	"time"

	"github.com/atotto/clipboard"
	"github.com/micmonay/keybd_event"
)

// pasteBackend puts the text on the clipboard and types the paste
// chord into the focused window, so dictation lands directly at the
// cursor.
type pasteBackend struct{}

func newPasteBackend() Backend { return pasteBackend{} }

func (pasteBackend) Name() string { return "paste" }

func (pasteBackend) Write(text string) error {
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("set clipboard: %w", err)
	}

	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return fmt.Errorf("init key synthesis: %w", err)
	}

	kb.SetKeys(keybd_event.VK_V)
	if runtime.GOOS == "darwin" {
		kb.HasSuper(true)
	} else {
		kb.HasCTRL(true)
	}

	// Give the clipboard manager a moment before pasting.
	time.Sleep(50 * time.Millisecond)

	if err := kb.Launching(); err != nil {
		return fmt.Errorf("send paste chord: %w", err)
	}
	return nil
}
