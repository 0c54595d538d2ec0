// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package plot carries the pointer server's motion trace to live
// viewers over MQTT and WebSocket.
package plot

import (
	"errors"
	"math"
	"strings"
	"sync"
	"time"
)

// Sample is one plotted point. DY is already flipped so that positive
// means up.
type Sample struct {
	Seq   uint64    `json:"seq"`
	Time  time.Time `json:"time"`
	DX    float64   `json:"dx"`
	DY    float64   `json:"dy"`
	Click [2]bool   `json:"click"`
	Data  []float64 `json:"data,omitempty"`
}

// Sink receives plot samples. Publish must not block the caller for long.
type Sink interface {
	Publish(s Sample) error
}

// Fanout publishes to every sink and joins their errors.
type Fanout []Sink

func (f Fanout) Publish(s Sample) error {
	var errs []error
	for _, sink := range f {
		if err := sink.Publish(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Ring keeps the last N samples, oldest first.
type Ring struct {
	mu   sync.Mutex
	buf  []Sample
	next int
	full bool
}

func NewRing(n int) *Ring {
	if n < 1 {
		n = 1
	}
	return &Ring{buf: make([]Sample, n)}
}

func (r *Ring) Publish(s Sample) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf[r.next] = s
	r.next = (r.next + 1) % len(r.buf)
	if r.next == 0 {
		r.full = true
	}
	return nil
}

// Snapshot returns the stored samples, oldest first.
func (r *Ring) Snapshot() []Sample {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.full {
		return append([]Sample(nil), r.buf[:r.next]...)
	}
	out := make([]Sample, 0, len(r.buf))
	out = append(out, r.buf[r.next:]...)
	return append(out, r.buf[:r.next]...)
}

const sparkBlocks = " ▁▂▃▄▅▆▇█"

// Sparkline maps values onto block glyphs between lo and hi. Values out
// of range are clamped.
func Sparkline(values []float64, lo, hi float64) string {
	blocks := []rune(sparkBlocks)
	var b strings.Builder
	span := hi - lo
	for _, v := range values {
		idx := 0
		if span > 0 {
			f := (v - lo) / span
			f = math.Max(0, math.Min(1, f))
			idx = int(math.Round(f * float64(len(blocks)-1)))
		}
		b.WriteRune(blocks[idx])
	}
	return b.String()
}
