// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package motion

import (
	"sync"

	"github.com/relabs-tech/inertial_mouse/internal/protocol"
)

// ClickLatch holds click intents from the UI until the processor sends
// them. Each press is delivered at most once.
type ClickLatch struct {
	mu      sync.Mutex
	pending [2]bool
}

// Press latches a click on b.
func (l *ClickLatch) Press(b protocol.Button) {
	if b != protocol.Left && b != protocol.Right {
		return
	}
	l.mu.Lock()
	l.pending[b] = true
	l.mu.Unlock()
}

// Take returns the latched clicks and clears them.
func (l *ClickLatch) Take() [2]bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	c := l.pending
	l.pending = [2]bool{}
	return c
}
