//go:build windows

package notification

import (
	"log"

	"github.com/go-toast/toast"
)

type toastNotifier struct{}

func newPlatformNotifier() Notifier { return toastNotifier{} }

// Show pushes a toast asynchronously; PowerShell startup is slow.
func (toastNotifier) Show(title, message string) error {
	go func() {
		n := toast.Notification{
			AppID:   appID,
			Title:   title,
			Message: message,
		}
		if err := n.Push(); err != nil {
			log.Printf("toast push failed: %v", err)
		}
	}()
	return nil
}
