// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package pointer

import (
	"fmt"

	"github.com/bendahl/uinput"

	"github.com/relabs-tech/inertial_mouse/internal/protocol"
)

// DefaultUinputPath is the Linux uinput device node.
const DefaultUinputPath = "/dev/uinput"

// UinputPointer drives a virtual mouse through Linux uinput.
type UinputPointer struct {
	mouse uinput.Mouse
}

// NewUinputPointer registers a virtual mouse named "inertial-mouse".
func NewUinputPointer(path string) (*UinputPointer, error) {
	if path == "" {
		path = DefaultUinputPath
	}
	m, err := uinput.CreateMouse(path, []byte("inertial-mouse"))
	if err != nil {
		return nil, fmt.Errorf("pointer: create uinput mouse on %s: %w", path, err)
	}
	return &UinputPointer{mouse: m}, nil
}

func (p *UinputPointer) Click(b protocol.Button) error {
	switch b {
	case protocol.Left:
		return p.mouse.LeftClick()
	case protocol.Right:
		return p.mouse.RightClick()
	default:
		return fmt.Errorf("pointer: unsupported button %v", b)
	}
}

func (p *UinputPointer) Move(dx, dy int) error {
	if dx > 0 {
		if err := p.mouse.MoveRight(int32(dx)); err != nil {
			return err
		}
	} else if dx < 0 {
		if err := p.mouse.MoveLeft(int32(-dx)); err != nil {
			return err
		}
	}
	if dy > 0 {
		return p.mouse.MoveDown(int32(dy))
	} else if dy < 0 {
		return p.mouse.MoveUp(int32(-dy))
	}
	return nil
}

func (p *UinputPointer) Close() error { return p.mouse.Close() }
