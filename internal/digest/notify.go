package digest

import (
	"fmt"

	"github.com/gen2brain/beeep"
)

// DesktopNotifier sends notifications through the OS notification center.
func DesktopNotifier(appName string) Notifier {
	beeep.AppName = appName
	return func(title, message string) error {
		if err := beeep.Notify(title, message, ""); err != nil {
			return fmt.Errorf("desktop notification: %w", err)
		}
		return nil
	}
}
