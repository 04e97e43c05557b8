/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package dispatch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/friendsincode/playcore/internal/apierr"
)

func TestRunExecutesOnConsumer(t *testing.T) {
	q := New()
	stop := make(chan struct{})
	go func() {
		for {
			select {
			case <-stop:
				return
			default:
				q.Process(10 * time.Millisecond)
			}
		}
	}()
	defer close(stop)

	var got int32
	if err := q.Run(context.Background(), func() { atomic.StoreInt32(&got, 42) }); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if atomic.LoadInt32(&got) != 42 {
		t.Fatal("job did not run before Run returned")
	}
}

func TestProcessRunsInOrder(t *testing.T) {
	q := New()
	var order []int
	for i := 0; i < 3; i++ {
		i := i
		if err := q.Enqueue(func() { order = append(order, i) }, nil); err != nil {
			t.Fatal(err)
		}
	}
	if n := q.Process(0); n != 3 {
		t.Fatalf("Process() = %d", n)
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("order = %v", order)
		}
	}
}

func TestProcessWaitsForWakeup(t *testing.T) {
	q := New()
	go func() {
		time.Sleep(10 * time.Millisecond)
		q.Wakeup()
	}()
	start := time.Now()
	q.Process(5 * time.Second)
	if time.Since(start) > 2*time.Second {
		t.Fatal("Wakeup did not interrupt Process")
	}
}

func TestCloseCancelsPending(t *testing.T) {
	q := New()
	cancelled := false
	ran := false
	_ = q.Enqueue(func() { ran = true }, func() { cancelled = true })

	q.Close()
	if !cancelled || ran {
		t.Fatalf("cancelled=%v ran=%v", cancelled, ran)
	}
	if err := q.Enqueue(func() {}, nil); !errors.Is(err, apierr.Uninitialized) {
		t.Fatalf("Enqueue after Close err = %v", err)
	}
	if err := q.Run(context.Background(), func() {}); !errors.Is(err, apierr.Uninitialized) {
		t.Fatalf("Run after Close err = %v", err)
	}
}

func TestRunClosedWhileWaiting(t *testing.T) {
	q := New()
	errc := make(chan error, 1)
	go func() { errc <- q.Run(context.Background(), func() {}) }()

	time.Sleep(10 * time.Millisecond)
	q.Close()
	select {
	case err := <-errc:
		if !errors.Is(err, apierr.Uninitialized) {
			t.Fatalf("Run err = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Close")
	}
}

func TestRunContextCancelled(t *testing.T) {
	q := New()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := q.Run(ctx, func() {}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run err = %v", err)
	}
	if n := q.Process(0); n != 0 {
		t.Fatalf("cancelled job still ran: %d", n)
	}
}
