package service

import "github.com/msomdec/task-manager/internal/notify"

// Notifier accepts emails for background delivery. Implementations must
// not block.
type Notifier interface {
	Enqueue(msg notify.Message) bool
}

func enqueue(n Notifier, msg notify.Message) {
	if n == nil {
		return
	}
	n.Enqueue(msg)
}
