package database

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quietroom/quietroom"
	"github.com/quietroom/quietroom/database/driver"
)

type fakeSession struct {
	id      int
	pingErr error
	closed  atomic.Bool
}

func (s *fakeSession) Ping(_ context.Context) error { return s.pingErr }

func (s *fakeSession) Exec(_ context.Context, _ string, _ ...any) (int64, error) {
	return 0, nil
}

func (s *fakeSession) Query(_ context.Context, _ string, _ ...any) (quietroom.Rows, error) {
	return nil, errors.New("not implemented")
}

func (s *fakeSession) Begin(_ context.Context) (driver.Tx, error) {
	return nil, errors.New("not implemented")
}

func (s *fakeSession) Close(_ context.Context) error {
	s.closed.Store(true)
	return nil
}

type fakeBackend struct {
	mu      sync.Mutex
	opens   int
	openErr error
}

func (b *fakeBackend) Open(_ context.Context) (driver.Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.openErr != nil {
		return nil, b.openErr
	}
	b.opens++
	return &fakeSession{id: b.opens}, nil
}

func (b *fakeBackend) SchemaLock(_ context.Context) (func() error, error) {
	return func() error { return nil }, nil
}

func (b *fakeBackend) Close() error { return nil }

func (b *fakeBackend) openCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.opens
}

func (b *fakeBackend) setOpenErr(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.openErr = err
}

func TestPool_EagerOpen(t *testing.T) {
	t.Parallel()

	b := &fakeBackend{}
	p, err := newPool(context.Background(), b, KindEmbedded, 3, time.Second)
	require.NoError(t, err)
	defer func() { _ = p.close(context.Background()) }()

	assert.Equal(t, 3, b.openCount(), "all sessions open at construction")
}

func TestPool_EagerOpenFailsFast(t *testing.T) {
	t.Parallel()

	b := &fakeBackend{openErr: errors.New("connection refused")}
	_, err := newPool(context.Background(), b, KindClientServer, 2, time.Second)
	require.Error(t, err)

	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, KindClientServer, connErr.Kind)
}

func TestPool_NoDoubleLease(t *testing.T) {
	t.Parallel()

	b := &fakeBackend{}
	p, err := newPool(context.Background(), b, KindEmbedded, 2, 200*time.Millisecond)
	require.NoError(t, err)
	defer func() { _ = p.close(context.Background()) }()

	first, err := p.acquire(context.Background())
	require.NoError(t, err)
	second, err := p.acquire(context.Background())
	require.NoError(t, err)

	assert.NotSame(t, first, second, "leased slots are distinct")

	p.release(context.Background(), first, false)
	p.release(context.Background(), second, false)
}

func TestPool_ThirdAcquireBlocksUntilRelease(t *testing.T) {
	t.Parallel()

	b := &fakeBackend{}
	p, err := newPool(context.Background(), b, KindEmbedded, 2, time.Second)
	require.NoError(t, err)
	defer func() { _ = p.close(context.Background()) }()

	first, err := p.acquire(context.Background())
	require.NoError(t, err)
	second, err := p.acquire(context.Background())
	require.NoError(t, err)

	acquired := make(chan *pooledSession, 1)
	errs := make(chan error, 1)
	go func() {
		ps, err := p.acquire(context.Background())
		if err != nil {
			errs <- err
			return
		}
		acquired <- ps
	}()

	select {
	case <-acquired:
		t.Fatal("third acquire completed against an exhausted pool")
	case err := <-errs:
		t.Fatalf("third acquire failed early: %v", err)
	case <-time.After(100 * time.Millisecond):
	}

	p.release(context.Background(), first, false)

	select {
	case ps := <-acquired:
		p.release(context.Background(), ps, false)
	case err := <-errs:
		t.Fatalf("third acquire failed after release: %v", err)
	case <-time.After(time.Second):
		t.Fatal("third acquire did not complete after release")
	}

	p.release(context.Background(), second, false)
}

func TestPool_AcquireTimesOutWhenExhausted(t *testing.T) {
	t.Parallel()

	b := &fakeBackend{}
	p, err := newPool(context.Background(), b, KindEmbedded, 1, 150*time.Millisecond)
	require.NoError(t, err)
	defer func() { _ = p.close(context.Background()) }()

	held, err := p.acquire(context.Background())
	require.NoError(t, err)

	start := time.Now()
	_, err = p.acquire(context.Background())
	require.ErrorIs(t, err, ErrPoolTimeout)
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)

	p.release(context.Background(), held, false)
}

func TestPool_AcquireHonorsContextCancellation(t *testing.T) {
	t.Parallel()

	b := &fakeBackend{}
	p, err := newPool(context.Background(), b, KindEmbedded, 1, 10*time.Second)
	require.NoError(t, err)
	defer func() { _ = p.close(context.Background()) }()

	held, err := p.acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = p.acquire(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	p.release(context.Background(), held, false)
}

func TestPool_DeadSessionReplacedOnAcquire(t *testing.T) {
	t.Parallel()

	b := &fakeBackend{}
	p, err := newPool(context.Background(), b, KindEmbedded, 1, time.Second)
	require.NoError(t, err)
	defer func() { _ = p.close(context.Background()) }()

	ps, err := p.acquire(context.Background())
	require.NoError(t, err)
	dead := ps.sess.(*fakeSession)
	dead.pingErr = errors.New("connection reset")
	p.release(context.Background(), ps, false)

	revived, err := p.acquire(context.Background())
	require.NoError(t, err)

	assert.True(t, dead.closed.Load(), "dead session is closed")
	assert.NotSame(t, dead, revived.sess, "slot holds a fresh session")
	assert.Equal(t, 2, b.openCount())

	p.release(context.Background(), revived, false)
}

func TestPool_BrokenReleaseReopensLazily(t *testing.T) {
	t.Parallel()

	b := &fakeBackend{}
	p, err := newPool(context.Background(), b, KindEmbedded, 1, time.Second)
	require.NoError(t, err)
	defer func() { _ = p.close(context.Background()) }()

	ps, err := p.acquire(context.Background())
	require.NoError(t, err)
	broken := ps.sess.(*fakeSession)
	p.release(context.Background(), ps, true)

	assert.True(t, broken.closed.Load(), "broken session closed on release")
	assert.Equal(t, 1, b.openCount(), "reopen deferred until the next acquire")

	fresh, err := p.acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, b.openCount())
	require.NotNil(t, fresh.sess)

	p.release(context.Background(), fresh, false)
}

func TestPool_ReviveGivesUpAfterBoundedRetries(t *testing.T) {
	t.Parallel()

	b := &fakeBackend{}
	p, err := newPool(context.Background(), b, KindEmbedded, 1, time.Second)
	require.NoError(t, err)
	defer func() { _ = b.Close() }()

	ps, err := p.acquire(context.Background())
	require.NoError(t, err)
	p.release(context.Background(), ps, true)
	b.setOpenErr(errors.New("connection refused"))

	_, err = p.acquire(context.Background())
	require.Error(t, err)

	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, KindEmbedded, connErr.Kind)

	// The slot stays in rotation; once the backend recovers the next
	// acquire succeeds.
	b.setOpenErr(nil)
	ps, err = p.acquire(context.Background())
	require.NoError(t, err)
	p.release(context.Background(), ps, false)

	require.NoError(t, p.close(context.Background()))
}
