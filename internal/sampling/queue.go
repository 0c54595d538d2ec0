// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sampling

import (
	"sync"
	"time"

	"github.com/relabs-tech/inertial_mouse/internal/imu"
	"github.com/relabs-tech/inertial_mouse/internal/log"
)

// DefaultCapacity is the queue size used when none is configured.
const DefaultCapacity = 256

// dropLogInterval limits overflow warnings to one per interval.
const dropLogInterval = time.Second

// Queue is a fixed-capacity FIFO of sensor readings. Push never blocks:
// when the queue is full the oldest reading is evicted. It is meant for
// exactly one producer and one consumer.
type Queue struct {
	mu    sync.Mutex
	buf   []imu.SensorReading
	head  int
	count int

	dropped     uint64
	lastDropLog time.Time

	notify chan struct{}
}

// NewQueue creates a queue holding at most capacity readings.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Queue{
		buf:    make([]imu.SensorReading, capacity),
		notify: make(chan struct{}, 1),
	}
}

// Push appends r. It reports whether the oldest reading had to be dropped.
func (q *Queue) Push(r imu.SensorReading) bool {
	q.mu.Lock()
	dropped := false
	if q.count == len(q.buf) {
		q.head = (q.head + 1) % len(q.buf)
		q.count--
		q.dropped++
		dropped = true
	}
	q.buf[(q.head+q.count)%len(q.buf)] = r
	q.count++

	var total uint64
	logDrop := false
	if dropped && time.Since(q.lastDropLog) >= dropLogInterval {
		q.lastDropLog = time.Now()
		total = q.dropped
		logDrop = true
	}
	q.mu.Unlock()

	if logDrop {
		log.Warn("sample queue full, dropped oldest reading", "capacity", len(q.buf), "dropped_total", total)
	}

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return dropped
}

// Pop removes and returns the oldest reading, waiting up to timeout for
// one to arrive. ok is false if the queue was still empty at the deadline.
func (q *Queue) Pop(timeout time.Duration) (r imu.SensorReading, ok bool) {
	if r, ok := q.tryPop(); ok {
		return r, true
	}
	if timeout <= 0 {
		return imu.SensorReading{}, false
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case <-q.notify:
			if r, ok := q.tryPop(); ok {
				return r, true
			}
		case <-timer.C:
			return q.tryPop()
		}
	}
}

func (q *Queue) tryPop() (imu.SensorReading, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.count == 0 {
		return imu.SensorReading{}, false
	}
	r := q.buf[q.head]
	q.buf[q.head] = imu.SensorReading{}
	q.head = (q.head + 1) % len(q.buf)
	q.count--
	return r, true
}

// Len returns the number of queued readings.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Cap returns the fixed capacity.
func (q *Queue) Cap() int { return len(q.buf) }

// Dropped returns how many readings were evicted since creation.
func (q *Queue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
