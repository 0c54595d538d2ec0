// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package protocol implements the request/acknowledge wire format between
// the motion client and the pointer server.
//
// A request is one UTF-8 JSON object written in a single write:
//
//	{"move":[dx,dy,dz],"click":[left,right],"plot_data":[...]}
//
// The server answers every decoded request with the 3-byte token "ACK".
// There is no length prefix; a request must fit in MaxMessageSize bytes.
package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

const (
	// MaxMessageSize is the receive buffer size for one request.
	MaxMessageSize = 1024
	// AckToken acknowledges one request.
	AckToken = "ACK"
	// AckReadSize is how many bytes the client reads when waiting for an ack.
	AckReadSize = 8
)

var (
	// ErrDecode marks a request that is not a valid command.
	ErrDecode = errors.New("protocol: malformed command")
	// ErrOversized marks a request that does not fit in MaxMessageSize.
	ErrOversized = errors.New("protocol: command exceeds maximum message size")
)

// Button indexes Command.Click.
type Button int

const (
	Left Button = iota
	Right
)

func (b Button) String() string {
	switch b {
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return fmt.Sprintf("button(%d)", int(b))
	}
}

// Command is one motion request.
type Command struct {
	Move     [3]float64 `json:"move"`
	Click    [2]bool    `json:"click"`
	PlotData []float64  `json:"plot_data"`
}

// Encode serializes c. The result is always smaller than MaxMessageSize.
func Encode(c Command) ([]byte, error) {
	if c.PlotData == nil {
		c.PlotData = []float64{}
	}
	b, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("protocol: encode command: %w", err)
	}
	if len(b) >= MaxMessageSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrOversized, len(b))
	}
	return b, nil
}

// wireCommand uses slices so that wrong array lengths are detected
// instead of silently truncated or zero-filled.
type wireCommand struct {
	Move     []float64 `json:"move"`
	Click    []bool    `json:"click"`
	PlotData []float64 `json:"plot_data"`
}

// Decode parses one request. Any failure wraps ErrDecode or ErrOversized.
func Decode(b []byte) (Command, error) {
	if len(b) >= MaxMessageSize {
		return Command{}, fmt.Errorf("%w: %d bytes", ErrOversized, len(b))
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()

	var w wireCommand
	if err := dec.Decode(&w); err != nil {
		return Command{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if dec.More() {
		return Command{}, fmt.Errorf("%w: trailing data after command", ErrDecode)
	}
	if len(w.Move) != 3 {
		return Command{}, fmt.Errorf("%w: move has %d components, want 3", ErrDecode, len(w.Move))
	}
	if len(w.Click) != 2 {
		return Command{}, fmt.Errorf("%w: click has %d flags, want 2", ErrDecode, len(w.Click))
	}

	c := Command{PlotData: w.PlotData}
	copy(c.Move[:], w.Move)
	copy(c.Click[:], w.Click)
	if c.PlotData == nil {
		c.PlotData = []float64{}
	}
	return c, nil
}
