package notification

import (
	"errors"
	"log"

	"screen-snip/src/publish"
	"screen-snip/src/snapshot"
)

const (
	appID      = "Screen Snip"
	maxMessage = 200
)

// Notifier shows a short message to the user.
type Notifier interface {
	Show(title, message string) error
}

// New returns the platform notifier.
func New() Notifier { return newPlatformNotifier() }

// ReportError turns a failed session into a user-facing notification.
// Cancellations are not reported.
func ReportError(n Notifier, err error) {
	if err == nil || n == nil {
		return
	}
	title, message := Describe(err)
	if title == "" {
		return
	}
	if showErr := n.Show(title, message); showErr != nil {
		log.Printf("Failed to show notification: %v", showErr)
	}
}

// Describe picks a title for err and truncates its message. An empty title
// means the error is not worth showing.
func Describe(err error) (title, message string) {
	var captureErr *snapshot.CaptureError
	var clipErr *publish.ClipboardError
	switch {
	case errors.As(err, &captureErr):
		title = "Screen capture failed"
	case errors.As(err, &clipErr):
		title = "Copy to clipboard failed"
	case errors.Is(err, publish.ErrEmptySelection):
		return "", ""
	default:
		title = "Screen Snip error"
	}
	message = err.Error()
	if len(message) > maxMessage {
		message = message[:maxMessage] + "..."
	}
	return title, message
}
