package notification

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const defaultSendTimeout = 5 * time.Second

// Async delivers messages on background goroutines so callers never wait on
// downstream systems. Failures are logged and dropped.
type Async struct {
	next    Notifier
	logger  *slog.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewAsync wraps next. A zero timeout uses the default of five seconds.
func NewAsync(next Notifier, logger *slog.Logger, timeout time.Duration) *Async {
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Async{next: next, logger: logger, timeout: timeout}
}

// Send schedules delivery and returns immediately. The caller's context only
// contributes its values; cancellation of the request does not abort delivery.
func (a *Async) Send(ctx context.Context, message Message) error {
	if a == nil || a.next == nil {
		return nil
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
		defer cancel()
		if err := a.next.Send(sendCtx, message); err != nil {
			a.logger.Warn("notification delivery failed", "event", message.Event, "account_id", message.AccountID, "error", err)
		}
	}()
	return nil
}

// Wait blocks until in-flight deliveries finish or ctx is done.
func (a *Async) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
