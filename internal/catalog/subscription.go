package catalog

import (
	"context"
	"errors"
	"sync"
	"time"

	"foodviz/internal/domain"
)

// Subscription is a running poll loop. Stop cancels the timer and any load in
// flight and waits for the loop to exit, so no cache write happens after it returns.
type Subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once

	mu  sync.Mutex
	err error
}

// Poll loads immediately and then every interval until ctx is cancelled,
// Stop is called, or the backend rejects the session. Transient failures keep
// the previous snapshot and polling continues.
func (c *Catalog) Poll(ctx context.Context, f Filters, interval time.Duration) (*Subscription, error) {
	if interval <= 0 {
		return nil, errors.New("catalog: poll interval must be positive")
	}
	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(sub.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		c.logger.Info().Dur("interval", interval).Msg("catalog: polling started")
		defer c.logger.Info().Msg("catalog: polling stopped")

		for {
			if err := c.Load(ctx, f); err != nil {
				if ctx.Err() != nil {
					return
				}
				if errors.Is(err, domain.ErrUnauthorized) {
					sub.setErr(err)
					return
				}
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return sub, nil
}

// Stop ends polling. It is safe to call more than once.
func (s *Subscription) Stop() {
	s.once.Do(s.cancel)
	<-s.done
}

// Done is closed when the loop has exited.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Err reports why polling ended on its own, if it did.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Subscription) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}
