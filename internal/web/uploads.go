package web

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooManyUploads is returned when every upload slot is occupied and
// the wait timeout expires. Clients should retry after a short delay.
var ErrTooManyUploads = errors.New("too many concurrent uploads, please try again later")

// uploadLimiter caps how many workbook uploads are processed in
// parallel. Parsing a workbook holds the whole file in memory, so
// unbounded concurrency can exhaust the process under load. When all
// slots are occupied, new requests wait up to maxWait before being
// rejected with ErrTooManyUploads.
type uploadLimiter struct {
	semaphore chan struct{}
	maxWait   time.Duration

	mu     sync.Mutex
	active int
}

func newUploadLimiter(maxConcurrent int, maxWait time.Duration) *uploadLimiter {
	return &uploadLimiter{
		semaphore: make(chan struct{}, maxConcurrent),
		maxWait:   maxWait,
	}
}

// acquire claims an upload slot, waiting up to maxWait for one to free
// up. The caller must release() after a successful acquire.
func (l *uploadLimiter) acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return nil
	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTooManyUploads
	}
}

func (l *uploadLimiter) release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()
	<-l.semaphore
}

// activeCount reports how many uploads are currently being processed.
func (l *uploadLimiter) activeCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}
