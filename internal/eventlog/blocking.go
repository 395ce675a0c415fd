package eventlog

import (
	"context"
	"time"
)

// AppendSignal returns a channel that is closed by the next append. Take it
// before reading so an append racing the read still wakes the waiter.
func (l *Log) AppendSignal() <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.notifyCh
}

// WaitForAppend blocks until a new append occurs, timeout elapses, or ctx is done.
// It returns true only if woken by an append. timeout <= 0 waits on ctx alone.
func (l *Log) WaitForAppend(ctx context.Context, timeout time.Duration) bool {
	return WaitSignal(ctx, l.AppendSignal(), timeout)
}

// WaitSignal blocks until sig is closed, timeout elapses, or ctx is done. It
// returns true only if sig was closed.
func WaitSignal(ctx context.Context, sig <-chan struct{}, timeout time.Duration) bool {
	var timer <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timer = t.C
	}
	select {
	case <-sig:
		return true
	case <-timer:
		return false
	case <-ctx.Done():
		return false
	}
}
