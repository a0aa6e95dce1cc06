package mailbox_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/quintans/go-trafficlight/mailbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFIFOOrder(t *testing.T) {
	mb := mailbox.New[int]()
	mb.Send(1)
	mb.Send(2)
	mb.Send(3)
	require.Equal(t, 3, mb.Len())

	for _, want := range []int{1, 2, 3} {
		got, err := mb.Receive(t.Context())
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	assert.Equal(t, 0, mb.Len())
}

func TestLIFOOrder(t *testing.T) {
	mb := mailbox.New[int](mailbox.OrderOption(mailbox.LIFO))
	mb.Send(1)
	mb.Send(2)
	mb.Send(3)

	for _, want := range []int{3, 2, 1} {
		got, err := mb.Receive(t.Context())
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestCapacityEvictsOldest(t *testing.T) {
	mb := mailbox.New[string](mailbox.CapacityOption(2))
	mb.Send("a")
	mb.Send("b")
	mb.Send("c")
	require.Equal(t, 2, mb.Len())

	v, ok := mb.TryReceive()
	require.True(t, ok)
	assert.Equal(t, "b", v)
	v, ok = mb.TryReceive()
	require.True(t, ok)
	assert.Equal(t, "c", v)
	_, ok = mb.TryReceive()
	assert.False(t, ok)
}

func TestReceiveBlocksUntilSend(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		mb := mailbox.New[int]()
		got := make(chan int, 1)

		go func() {
			v, err := mb.Receive(context.Background())
			if err == nil {
				got <- v
			}
		}()

		synctest.Wait()
		select {
		case <-got:
			t.Fatal("receive returned before any send")
		default:
		}

		mb.Send(42)
		synctest.Wait()
		assert.Equal(t, 42, <-got)
	})
}

func TestSendWakesOneReceiver(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		mb := mailbox.New[int]()
		got := make(chan int, 2)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		for range 2 {
			go func() {
				v, err := mb.Receive(ctx)
				if err == nil {
					got <- v
				}
			}()
		}
		synctest.Wait()

		mb.Send(7)
		synctest.Wait()
		require.Len(t, got, 1)
		assert.Equal(t, 7, <-got)

		cancel()
		synctest.Wait()
		assert.Empty(t, got)
	})
}

func TestReceiveHonoursDeadline(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		mb := mailbox.New[int]()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		start := time.Now()
		_, err := mb.Receive(ctx)
		require.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Equal(t, time.Second, time.Since(start))

		// the cancelled receiver must not swallow later values
		mb.Send(1)
		v, err := mb.Receive(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, v)
	})
}

func TestCloseDrainsThenFails(t *testing.T) {
	mb := mailbox.New[int]()
	mb.Send(1)
	mb.Close()
	mb.Close()
	mb.Send(2)

	v, err := mb.Receive(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	_, err = mb.Receive(t.Context())
	require.ErrorIs(t, err, mailbox.ErrClosed)
}

func TestCloseUnblocksReceivers(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		mb := mailbox.New[int]()
		errs := make(chan error, 3)

		for range 3 {
			go func() {
				_, err := mb.Receive(context.Background())
				errs <- err
			}()
		}
		synctest.Wait()

		mb.Close()
		for range 3 {
			assert.ErrorIs(t, <-errs, mailbox.ErrClosed)
		}
	})
}

func TestHandOffExactlyOnce(t *testing.T) {
	const (
		senders   = 8
		receivers = 8
		perSender = 250
	)

	mb := mailbox.New[int]()

	var mu sync.Mutex
	seen := make(map[int]int, senders*perSender)

	var rwg sync.WaitGroup
	for range receivers {
		rwg.Add(1)
		go func() {
			defer rwg.Done()
			for {
				v, err := mb.Receive(context.Background())
				if errors.Is(err, mailbox.ErrClosed) {
					return
				}
				mu.Lock()
				seen[v]++
				mu.Unlock()
			}
		}()
	}

	var swg sync.WaitGroup
	for s := range senders {
		swg.Add(1)
		go func() {
			defer swg.Done()
			for i := range perSender {
				mb.Send(s*perSender + i)
			}
		}()
	}
	swg.Wait()
	mb.Close()
	rwg.Wait()

	require.Len(t, seen, senders*perSender)
	for v, n := range seen {
		require.Equal(t, 1, n, "value %d received %d times", v, n)
	}
}
