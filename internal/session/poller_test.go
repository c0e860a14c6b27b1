package session

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPoller_StopsOnceVerified(t *testing.T) {
	var checks, notifications atomic.Int32

	check := func(context.Context) (bool, error) {
		return checks.Add(1) >= 3, nil
	}
	p := NewPoller(5*time.Millisecond, check, func() { notifications.Add(1) }, nil)
	p.Start(context.Background())

	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("poller never finished")
	}

	got := checks.Load()
	assert.Equal(t, int32(3), got, "no ticks after verified")
	assert.Equal(t, int32(1), notifications.Load(), "OnVerified fires exactly once")

	// Give any stray tick a chance to show itself.
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, got, checks.Load())
}

func TestPoller_SwallowsCheckErrors(t *testing.T) {
	var checks atomic.Int32

	check := func(context.Context) (bool, error) {
		n := checks.Add(1)
		if n < 3 {
			return false, errors.New("network blip")
		}
		return true, nil
	}
	p := NewPoller(5*time.Millisecond, check, nil, nil)
	p.Start(context.Background())

	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("poller never recovered from check errors")
	}

	// Failed checks were retried on subsequent ticks.
	assert.Equal(t, int32(3), checks.Load())
}

func TestPoller_Stop(t *testing.T) {
	var checks atomic.Int32

	check := func(context.Context) (bool, error) {
		checks.Add(1)
		return false, nil
	}
	p := NewPoller(5*time.Millisecond, check, nil, nil)
	p.Start(context.Background())

	time.Sleep(20 * time.Millisecond)
	p.Stop()

	select {
	case <-p.Done():
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}

	after := checks.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, checks.Load(), "no checks after Stop")

	// Stop is idempotent.
	p.Stop()
}

func TestPoller_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	p := NewPoller(5*time.Millisecond, func(context.Context) (bool, error) {
		return false, nil
	}, nil, nil)
	p.Start(ctx)

	cancel()
	select {
	case <-p.Done():
	case <-time.After(time.Second):
		t.Fatal("poller ignored context cancellation")
	}
}
