//go:build !windows

package notification

import "log"

type logNotifier struct{}

func newPlatformNotifier() Notifier { return logNotifier{} }

func (logNotifier) Show(title, message string) error {
	log.Printf("NOTIFY: %s: %s", title, message)
	return nil
}
