/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package dispatch runs closures on the core goroutine on behalf of other
// goroutines.
package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/friendsincode/playcore/internal/apierr"
	"github.com/friendsincode/playcore/internal/telemetry"
)

type job struct {
	fn     func()
	cancel func()
	done   chan struct{}
}

// Queue is a multi-producer, single-consumer job queue. The consumer calls
// Process from its loop; producers use Run or Enqueue.
type Queue struct {
	wake chan struct{}

	mu     sync.Mutex
	jobs   []*job
	closed bool
}

// New creates an open queue.
func New() *Queue {
	return &Queue{wake: make(chan struct{}, 1)}
}

// Wakeup interrupts a Process call that is waiting for work.
func (q *Queue) Wakeup() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *Queue) push(j *job) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return apierr.Uninitialized
	}
	q.jobs = append(q.jobs, j)
	depth := len(q.jobs)
	q.mu.Unlock()

	telemetry.DispatchQueueDepth.Set(float64(depth))
	q.Wakeup()
	return nil
}

// Enqueue schedules fn without waiting. If the queue closes before fn
// runs, cancel is called instead so the caller can still answer.
func (q *Queue) Enqueue(fn func(), cancel func()) error {
	return q.push(&job{fn: fn, cancel: cancel})
}

// Run executes fn on the consumer and blocks until it returned. It fails
// with apierr.Uninitialized if the queue closes first, or with ctx.Err()
// if ctx ends before the consumer picked the job up.
func (q *Queue) Run(ctx context.Context, fn func()) error {
	var (
		once     sync.Once
		executed bool
	)
	done := make(chan struct{})
	finish := func(ran bool) {
		once.Do(func() {
			executed = ran
			close(done)
		})
	}
	j := &job{
		fn: func() {
			fn()
			finish(true)
		},
		cancel: func() { finish(false) },
	}
	if err := q.push(j); err != nil {
		return err
	}

	select {
	case <-done:
	case <-ctx.Done():
		if q.remove(j) {
			return ctx.Err()
		}
		// Already taken by the consumer.
		<-done
	}
	if !executed {
		return apierr.Uninitialized
	}
	return nil
}

func (q *Queue) remove(target *job) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, j := range q.jobs {
		if j == target {
			q.jobs = append(q.jobs[:i], q.jobs[i+1:]...)
			return true
		}
	}
	return false
}

// Process runs every job queued so far. When nothing was queued it waits
// up to timeout for a job or Wakeup. It returns the number of jobs run.
func (q *Queue) Process(timeout time.Duration) int {
	n := q.drain()
	if n > 0 || timeout <= 0 {
		return n
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-q.wake:
	case <-timer.C:
	}
	return q.drain()
}

func (q *Queue) drain() int {
	q.mu.Lock()
	jobs := q.jobs
	q.jobs = nil
	q.mu.Unlock()

	for _, j := range jobs {
		j.fn()
	}
	if len(jobs) > 0 {
		telemetry.DispatchJobs.Add(float64(len(jobs)))
		telemetry.DispatchQueueDepth.Set(0)
	}
	return len(jobs)
}

// Close rejects further jobs and cancels pending ones.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	jobs := q.jobs
	q.jobs = nil
	q.mu.Unlock()

	for _, j := range jobs {
		if j.cancel != nil {
			j.cancel()
		}
	}
	q.Wakeup()
}

// Closed reports whether Close was called.
func (q *Queue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
