// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package pointer

import (
	"fmt"
	"sync"

	"github.com/relabs-tech/inertial_mouse/internal/log"
	"github.com/relabs-tech/inertial_mouse/internal/protocol"
)

// Pointer is the platform pointing device.
// Move is relative and uses screen space (positive dy is down).
type Pointer interface {
	Click(b protocol.Button) error
	Move(dx, dy int) error
	Close() error
}

// Delta converts a command move vector to screen pixels. The vertical
// axis is inverted: device up is screen down-negative.
func Delta(cmd protocol.Command, speed float64) (dx, dy int) {
	return int(cmd.Move[0] * speed), int(-cmd.Move[1] * speed)
}

// Apply performs cmd on p: at most one click (left wins over right),
// then the relative move.
func Apply(p Pointer, cmd protocol.Command, speed float64) error {
	switch {
	case cmd.Click[protocol.Left]:
		if err := p.Click(protocol.Left); err != nil {
			return fmt.Errorf("pointer: left click: %w", err)
		}
	case cmd.Click[protocol.Right]:
		if err := p.Click(protocol.Right); err != nil {
			return fmt.Errorf("pointer: right click: %w", err)
		}
	}

	dx, dy := Delta(cmd, speed)
	if err := p.Move(dx, dy); err != nil {
		return fmt.Errorf("pointer: move: %w", err)
	}
	return nil
}

// Action is one call recorded by LogPointer.
type Action struct {
	Click  *protocol.Button
	DX, DY int
}

// LogPointer logs and records actions instead of moving a real cursor.
type LogPointer struct {
	mu      sync.Mutex
	actions []Action
}

func NewLogPointer() *LogPointer { return &LogPointer{} }

func (p *LogPointer) Click(b protocol.Button) error {
	log.Debug("pointer: click", "button", b)
	p.mu.Lock()
	p.actions = append(p.actions, Action{Click: &b})
	p.mu.Unlock()
	return nil
}

func (p *LogPointer) Move(dx, dy int) error {
	log.Debug("pointer: move", "dx", dx, "dy", dy)
	p.mu.Lock()
	p.actions = append(p.actions, Action{DX: dx, DY: dy})
	p.mu.Unlock()
	return nil
}

func (p *LogPointer) Close() error { return nil }

// Actions returns a copy of everything recorded so far.
func (p *LogPointer) Actions() []Action {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Action(nil), p.actions...)
}
