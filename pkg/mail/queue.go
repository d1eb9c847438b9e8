/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package mail

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/telekom/mailguard/pkg/metrics"
)

var (
	ErrNoRecipients = errors.New("cannot enqueue email with no receivers")
	ErrQueueStopped = errors.New("queue is shutting down")
	ErrQueueFull    = errors.New("mail queue is full")
)

// dispatcher is satisfied by *Dispatcher.
type dispatcher interface {
	Dispatch(ctx context.Context, msg Message) (Result, error)
}

// QueueItem is a queued message with its deferral state
type QueueItem struct {
	Message   Message
	Deferrals int
	CreatedAt time.Time
	NextRetry time.Time
	Done      bool
}

// Queue dispatches messages asynchronously. Messages denied by quota are
// re-scheduled for when the quota window resets.
type Queue struct {
	dispatcher   dispatcher
	host         string
	queue        chan *QueueItem
	log          *zap.SugaredLogger
	maxDeferrals int
	maxQueueSize int
	wg           sync.WaitGroup
	ctx          context.Context
	cancel       context.CancelFunc
	tick         time.Duration
}

// NewQueue creates a new mail queue in front of d. host labels metrics.
func NewQueue(d dispatcher, host string, log *zap.SugaredLogger, maxDeferrals, maxQueueSize int) *Queue {
	if maxDeferrals <= 0 {
		maxDeferrals = 10
	}
	if maxQueueSize <= 0 {
		maxQueueSize = 1000
	}

	log = log.Named("queue")
	log.Infow("Initializing mail queue",
		"maxDeferrals", maxDeferrals,
		"maxQueueSize", maxQueueSize)

	ctx, cancel := context.WithCancel(context.Background())

	return &Queue{
		dispatcher:   d,
		host:         host,
		queue:        make(chan *QueueItem, maxQueueSize),
		log:          log,
		maxDeferrals: maxDeferrals,
		maxQueueSize: maxQueueSize,
		ctx:          ctx,
		cancel:       cancel,
		tick:         50 * time.Millisecond,
	}
}

// Start begins the background worker
func (q *Queue) Start() {
	q.wg.Add(1)
	go q.worker()
	q.log.Info("Mail queue worker started")
}

// Enqueue adds msg to the queue and returns its ID. A missing ID is generated.
func (q *Queue) Enqueue(msg Message) (string, error) {
	if len(msg.To) == 0 {
		q.log.Errorw("Cannot enqueue email: empty receivers list", "id", msg.ID, "subject", msg.Subject)
		metrics.MailQueueDropped.WithLabelValues(q.host).Inc()
		return "", ErrNoRecipients
	}

	select {
	case <-q.ctx.Done():
		q.log.Errorw("Cannot enqueue, queue is shutting down", "id", msg.ID)
		metrics.MailQueueDropped.WithLabelValues(q.host).Inc()
		return "", ErrQueueStopped
	default:
	}

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	now := time.Now()
	item := &QueueItem{
		Message:   msg,
		CreatedAt: now,
		NextRetry: now,
	}

	select {
	case q.queue <- item:
		metrics.MailQueued.WithLabelValues(q.host).Inc()
		q.log.Debugw("Email queued for sending",
			"id", msg.ID,
			"receivers", len(msg.To),
			"subject", msg.Subject)
		return msg.ID, nil
	case <-q.ctx.Done():
		metrics.MailQueueDropped.WithLabelValues(q.host).Inc()
		return "", ErrQueueStopped
	default:
		metrics.MailQueueDropped.WithLabelValues(q.host).Inc()
		q.log.Errorw("Mail queue is full, dropping message",
			"id", msg.ID,
			"receivers", len(msg.To),
			"queueSize", q.maxQueueSize)
		return "", fmt.Errorf("%w (capacity: %d)", ErrQueueFull, q.maxQueueSize)
	}
}

// worker processes items from the queue
func (q *Queue) worker() {
	defer q.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			q.log.Errorw("panic in mail queue worker recovered", "panic", r)
			// Restart the worker to maintain processing capacity
			q.wg.Add(1)
			go q.worker()
		}
	}()

	pending := make([]*QueueItem, 0)
	ticker := time.NewTicker(q.tick)
	defer ticker.Stop()

	for {
		select {
		case <-q.ctx.Done():
			q.log.Info("Mail queue worker shutting down")
			q.drain(q.collect(pending))
			return

		case item := <-q.queue:
			if item == nil {
				continue
			}
			q.process(item)
			if !item.Done {
				pending = append(pending, item)
			}

		case <-ticker.C:
			now := time.Now()
			remaining := pending[:0]
			for _, item := range pending {
				if !now.Before(item.NextRetry) {
					q.process(item)
				}
				if !item.Done {
					remaining = append(remaining, item)
				}
			}
			pending = remaining
		}
	}
}

// process dispatches one item. Items denied by quota stay pending until
// NextRetry; everything else is finished after one dispatch.
func (q *Queue) process(item *QueueItem) {
	ctx := context.WithoutCancel(q.ctx)
	res, err := q.dispatcher.Dispatch(ctx, item.Message)

	switch {
	case err != nil:
		q.log.Errorw("Queued email failed",
			"id", item.Message.ID,
			"attempts", res.Attempts,
			"error", err)
		item.Done = true

	case res.Status == StatusRateLimited:
		item.Deferrals++
		if item.Deferrals > q.maxDeferrals {
			q.log.Errorw("Queued email dropped after too many quota deferrals",
				"id", item.Message.ID,
				"deferrals", item.Deferrals-1,
				"reason", res.Reason)
			metrics.MailQueueDropped.WithLabelValues(q.host).Inc()
			item.Done = true
			return
		}
		item.NextRetry = time.Now().Add(res.RetryAfter)
		metrics.MailQueueDeferred.WithLabelValues(q.host).Inc()
		q.log.Infow("Queued email deferred by quota",
			"id", item.Message.ID,
			"deferrals", item.Deferrals,
			"reason", res.Reason,
			"nextRetry", item.NextRetry.Format(time.RFC3339))

	case res.Status == StatusRejected:
		q.log.Warnw("Queued email rejected",
			"id", item.Message.ID,
			"problems", res.Problems)
		item.Done = true

	default:
		item.Done = true
	}
}

// collect appends everything still buffered in the channel to pending.
func (q *Queue) collect(pending []*QueueItem) []*QueueItem {
	for {
		select {
		case item := <-q.queue:
			if item != nil {
				pending = append(pending, item)
			}
		default:
			return pending
		}
	}
}

// drain gives every accepted item one final dispatch on shutdown. Items the
// quota still denies are dropped.
func (q *Queue) drain(items []*QueueItem) {
	q.log.Infow("Processing pending items on shutdown", "count", len(items))
	for _, item := range items {
		q.process(item)
		if !item.Done {
			metrics.MailQueueDropped.WithLabelValues(q.host).Inc()
			q.log.Errorw("Queued email dropped on shutdown",
				"id", item.Message.ID,
				"deferrals", item.Deferrals,
				"receivers", len(item.Message.To))
		}
	}
}

// Stop gracefully shuts down the queue and waits for the worker to finish
func (q *Queue) Stop(ctx context.Context) error {
	q.log.Info("Stopping mail queue")
	q.cancel()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.log.Info("Mail queue stopped gracefully")
		return nil
	case <-ctx.Done():
		q.log.Warnw("Mail queue shutdown timeout, some items may not have been processed")
		return ctx.Err()
	}
}

// Length returns the current number of items waiting in the channel
func (q *Queue) Length() int {
	return len(q.queue)
}
