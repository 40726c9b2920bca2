// Package notify sends fire-and-forget desktop notifications.
package notify

import (
	"log/slog"

	"github.com/gen2brain/beeep"
)

const appName = "voxd"

// Send shows a desktop notification. Failures are logged and
// swallowed; notifications never affect the daemon.
func Send(title, body string) {
	beeep.AppName = appName
	if err := beeep.Notify(title, body, ""); err != nil {
		slog.Warn("send notification", "error", err)
	}
}
