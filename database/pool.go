package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/quietroom/quietroom/database/driver"
)

const (
	// reopenAttempts bounds how often a failed liveness probe triggers a
	// reconnect before the acquire surfaces ConnectionError.
	reopenAttempts = 3
	reopenBackoff  = 100 * time.Millisecond
)

// pooledSession is one pool slot. sess is nil while the slot is waiting for
// a reconnect; the next acquire revives it.
type pooledSession struct {
	sess driver.Session
}

// pool owns a bounded set of live backend sessions. The free list is a
// buffered channel, which makes the no-double-lease guarantee structural: a
// slot handed to one caller cannot reach another until it is released.
type pool struct {
	backend        driver.Backend
	kind           Kind
	size           int
	acquireTimeout time.Duration

	free chan *pooledSession

	mu     sync.Mutex
	closed bool
}

// newPool opens size sessions eagerly and fails fast with ConnectionError
// when the backend is unreachable.
func newPool(ctx context.Context, b driver.Backend, kind Kind, size int, acquireTimeout time.Duration) (*pool, error) {
	p := &pool{
		backend:        b,
		kind:           kind,
		size:           size,
		acquireTimeout: acquireTimeout,
		free:           make(chan *pooledSession, size),
	}

	for i := 0; i < size; i++ {
		sess, err := b.Open(ctx)
		if err != nil {
			p.closeAll(ctx)
			return nil, &ConnectionError{Kind: kind, Err: err}
		}
		p.free <- &pooledSession{sess: sess}
	}

	return p, nil
}

// acquire leases a slot, blocking up to the configured timeout. Every lease
// is preceded by a liveness probe; a dead session is reopened under bounded
// exponential backoff before the slot is handed out.
func (p *pool) acquire(ctx context.Context) (*pooledSession, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, errors.New("database: pool is closed")
	}
	p.mu.Unlock()

	timer := time.NewTimer(p.acquireTimeout)
	defer timer.Stop()

	select {
	case ps := <-p.free:
		if err := p.revive(ctx, ps); err != nil {
			// The slot stays in rotation; a later acquire retries the
			// reconnect.
			p.free <- ps
			return nil, err
		}
		return ps, nil
	case <-timer.C:
		return nil, ErrPoolTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// release returns a slot to the free list. A broken session is closed first;
// its slot re-enters rotation empty and is reopened on the next acquire.
func (p *pool) release(ctx context.Context, ps *pooledSession, broken bool) {
	if broken && ps.sess != nil {
		_ = ps.sess.Close(ctx)
		ps.sess = nil
	}
	p.free <- ps
}

func (p *pool) revive(ctx context.Context, ps *pooledSession) error {
	if ps.sess != nil {
		if err := ps.sess.Ping(ctx); err == nil {
			return nil
		}
		_ = ps.sess.Close(ctx)
		ps.sess = nil
	}

	backoff := retry.WithMaxRetries(reopenAttempts-1, retry.NewExponential(reopenBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		sess, err := p.backend.Open(ctx)
		if err != nil {
			return retry.RetryableError(err)
		}
		ps.sess = sess
		return nil
	})
	if err != nil {
		return &ConnectionError{Kind: p.kind, Err: err}
	}
	return nil
}

// close drains the free list and closes every session. Outstanding leases
// must be released first; close waits up to the acquire timeout for each.
func (p *pool) close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	var errs []error
	for i := 0; i < p.size; i++ {
		select {
		case ps := <-p.free:
			if ps.sess != nil {
				if err := ps.sess.Close(ctx); err != nil {
					errs = append(errs, err)
				}
			}
		case <-time.After(p.acquireTimeout):
			errs = append(errs, fmt.Errorf("session %d not released before close", i))
		}
	}
	return errors.Join(errs...)
}

func (p *pool) closeAll(ctx context.Context) {
	close(p.free)
	for ps := range p.free {
		if ps.sess != nil {
			_ = ps.sess.Close(ctx)
		}
	}
}
