// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package mail

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/telekom/mailguard/pkg/metrics"
	"github.com/telekom/mailguard/pkg/ratelimit"
)

// scriptedDispatcher replays results in order, then reports sent.
type scriptedDispatcher struct {
	mu      sync.Mutex
	results []Result
	errs    []error
	seen    []Message
	delay   time.Duration
}

func (s *scriptedDispatcher) Dispatch(_ context.Context, msg Message) (Result, error) {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = append(s.seen, msg)
	res := Result{ID: msg.ID, Status: StatusSent, Attempts: 1}
	var err error
	if len(s.results) > 0 {
		res = s.results[0]
		s.results = s.results[1:]
	}
	if len(s.errs) > 0 {
		err = s.errs[0]
		s.errs = s.errs[1:]
	}
	return res, err
}

func (s *scriptedDispatcher) Seen() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.seen...)
}

func newTestQueue(t *testing.T, d dispatcher, host string, maxDeferrals, size int) *Queue {
	t.Helper()
	q := NewQueue(d, host, zaptest.NewLogger(t).Sugar(), maxDeferrals, size)
	q.tick = 5 * time.Millisecond
	return q
}

func TestNewQueue_Defaults(t *testing.T) {
	q := NewQueue(&scriptedDispatcher{}, "h", zaptest.NewLogger(t).Sugar(), 0, 0)
	assert.Equal(t, 10, q.maxDeferrals)
	assert.Equal(t, 1000, q.maxQueueSize)
	assert.Equal(t, 0, q.Length())
}

func TestQueue_Enqueue(t *testing.T) {
	d := &scriptedDispatcher{}
	q := newTestQueue(t, d, "queue-enqueue", 3, 10)
	q.Start()
	defer func() { _ = q.Stop(context.Background()) }()

	id, err := q.Enqueue(validMessage("user@example.com"))
	require.NoError(t, err)
	assert.Equal(t, "m-1", id)

	id, err = q.Enqueue(Message{To: []string{"user@example.com"}, Subject: "s", Text: "t"})
	require.NoError(t, err)
	assert.NotEmpty(t, id, "missing IDs are generated")

	require.Eventually(t, func() bool { return len(d.Seen()) == 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, id, d.Seen()[1].ID)
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.MailQueued.WithLabelValues("queue-enqueue")))
}

func TestQueue_EnqueueNoReceivers(t *testing.T) {
	q := newTestQueue(t, &scriptedDispatcher{}, "queue-empty", 3, 10)
	_, err := q.Enqueue(Message{Subject: "s", Text: "t"})
	assert.ErrorIs(t, err, ErrNoRecipients)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.MailQueueDropped.WithLabelValues("queue-empty")))
}

func TestQueue_EnqueueFull(t *testing.T) {
	// Worker not started, so the channel fills up.
	q := newTestQueue(t, &scriptedDispatcher{}, "queue-full", 3, 2)

	for i := 0; i < 2; i++ {
		_, err := q.Enqueue(validMessage(fmt.Sprintf("user%d@example.com", i)))
		require.NoError(t, err)
	}
	assert.Equal(t, 2, q.Length())

	_, err := q.Enqueue(validMessage("overflow@example.com"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Contains(t, err.Error(), "capacity: 2")
}

func TestQueue_EnqueueAfterShutdown(t *testing.T) {
	q := newTestQueue(t, &scriptedDispatcher{}, "queue-stopped", 3, 10)
	q.Start()
	require.NoError(t, q.Stop(context.Background()))

	_, err := q.Enqueue(validMessage("user@example.com"))
	assert.ErrorIs(t, err, ErrQueueStopped)
}

func TestQueue_DefersRateLimited(t *testing.T) {
	d := &scriptedDispatcher{results: []Result{
		{Status: StatusRateLimited, Reason: "Global rate limit exceeded: maximum 1 emails per minute", RetryAfter: 20 * time.Millisecond},
	}}
	q := newTestQueue(t, d, "queue-defer", 3, 10)
	q.Start()
	defer func() { _ = q.Stop(context.Background()) }()

	_, err := q.Enqueue(validMessage("user@example.com"))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(d.Seen()) == 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.MailQueueDeferred.WithLabelValues("queue-defer")))
}

func TestQueue_DropsAfterMaxDeferrals(t *testing.T) {
	limited := Result{Status: StatusRateLimited, RetryAfter: time.Millisecond}
	d := &scriptedDispatcher{results: []Result{limited, limited, limited, limited}}
	q := newTestQueue(t, d, "queue-drop", 2, 10)
	q.Start()
	defer func() { _ = q.Stop(context.Background()) }()

	_, err := q.Enqueue(validMessage("user@example.com"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(metrics.MailQueueDropped.WithLabelValues("queue-drop")) == 1
	}, 2*time.Second, 5*time.Millisecond)
	// First attempt plus two deferred attempts.
	assert.Len(t, d.Seen(), 3)
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.MailQueueDeferred.WithLabelValues("queue-drop")))
}

func TestQueue_FailuresAreNotRequeued(t *testing.T) {
	d := &scriptedDispatcher{
		results: []Result{{Status: StatusFailed, Attempts: 3}, {Status: StatusRejected, Problems: []string{"Subject is required"}}},
		errs:    []error{errors.New("550 mailbox unavailable")},
	}
	q := newTestQueue(t, d, "queue-fail", 3, 10)
	q.Start()

	_, err := q.Enqueue(validMessage("a@example.com"))
	require.NoError(t, err)
	_, err = q.Enqueue(validMessage("b@example.com"))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(d.Seen()) == 2 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	require.NoError(t, q.Stop(context.Background()))
	assert.Len(t, d.Seen(), 2)
}

func TestQueue_ShutdownDrainsPending(t *testing.T) {
	d := &scriptedDispatcher{results: []Result{{Status: StatusRateLimited, RetryAfter: time.Hour}}}
	q := newTestQueue(t, d, "queue-drain", 3, 10)
	q.Start()

	_, err := q.Enqueue(validMessage("user@example.com"))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(d.Seen()) == 1 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, q.Stop(context.Background()))
	assert.Len(t, d.Seen(), 2, "pending items get a final attempt on shutdown")
}

func TestQueue_ShutdownDrainsChannel(t *testing.T) {
	const host = "queue-drain-channel"
	d := &scriptedDispatcher{delay: 30 * time.Millisecond}
	q := newTestQueue(t, d, host, 3, 10)
	q.Start()

	dropped := testutil.ToFloat64(metrics.MailQueueDropped.WithLabelValues(host))
	for i := 0; i < 5; i++ {
		_, err := q.Enqueue(validMessage(fmt.Sprintf("user%d@example.com", i)))
		require.NoError(t, err)
	}

	require.NoError(t, q.Stop(context.Background()))
	assert.Equal(t, 0, q.Length())
	handled := float64(len(d.Seen())) + testutil.ToFloat64(metrics.MailQueueDropped.WithLabelValues(host)) - dropped
	assert.Equal(t, 5.0, handled, "every accepted message is dispatched or counted as dropped")
	assert.Len(t, d.Seen(), 5)
}

func TestQueue_ShutdownCountsStillLimitedAsDropped(t *testing.T) {
	const host = "queue-drain-limited"
	limited := Result{Status: StatusRateLimited, RetryAfter: time.Hour}
	d := &scriptedDispatcher{results: []Result{limited, limited}}
	q := newTestQueue(t, d, host, 3, 10)
	q.Start()

	_, err := q.Enqueue(validMessage("user@example.com"))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(d.Seen()) == 1 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, q.Stop(context.Background()))
	assert.Len(t, d.Seen(), 2)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.MailQueueDropped.WithLabelValues(host)))
}

func TestQueue_ShutdownTimeout(t *testing.T) {
	d := &scriptedDispatcher{delay: 200 * time.Millisecond}
	q := newTestQueue(t, d, "queue-timeout", 3, 10)
	q.Start()

	_, err := q.Enqueue(validMessage("user@example.com"))
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Stop(ctx), context.DeadlineExceeded)
	q.wg.Wait()
}

func TestQueue_ConcurrentEnqueue(t *testing.T) {
	d := &scriptedDispatcher{}
	q := newTestQueue(t, d, "queue-concurrent", 3, 100)
	q.Start()
	defer func() { _ = q.Stop(context.Background()) }()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := q.Enqueue(validMessage(fmt.Sprintf("user%d@example.com", i)))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	require.Eventually(t, func() bool { return len(d.Seen()) == 50 }, 2*time.Second, 5*time.Millisecond)
}

func TestQueue_WithDispatcher(t *testing.T) {
	s := &fakeSender{}
	limits := ratelimit.Limits{RecipientPerMinute: 1, RecipientPerHour: 20, GlobalPerMinute: 100, GlobalPerHour: 500}
	disp, _ := newTestDispatcher(t, "", limits, s)
	q := newTestQueue(t, disp, "queue-e2e", 3, 10)
	q.Start()

	for i := 0; i < 2; i++ {
		_, err := q.Enqueue(validMessage("same@example.com"))
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(metrics.MailQueueDeferred.WithLabelValues("queue-e2e")) == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Len(t, s.Sent(), 1, "second message waits for the minute window")
	require.NoError(t, q.Stop(context.Background()))
}
