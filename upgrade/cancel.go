package upgrade

import "context"

// CancelFormatChange is sent, or the channel carrying it closed, to stop a
// running format upgrade.
type CancelFormatChange struct{}

// NewCancelChannel returns a channel able to hold the one cancel request a
// pass needs, so the sender never blocks.
func NewCancelChannel() chan CancelFormatChange {
	return make(chan CancelFormatChange, 1)
}

// CancelOnDone returns a cancel channel that is closed when ctx is done.
// Calling stop releases ctx without closing the channel, it returns false if
// the channel was already closed.
func CancelOnDone(ctx context.Context) (cancel <-chan CancelFormatChange, stop func() bool) {
	ch := make(chan CancelFormatChange)
	stop = context.AfterFunc(ctx, func() { close(ch) })
	return ch, stop
}

// cancelled polls without blocking. A nil channel is never cancelled.
func cancelled(cancel <-chan CancelFormatChange) bool {
	select {
	case <-cancel:
		return true
	default:
		return false
	}
}
