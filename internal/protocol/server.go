// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package protocol

import (
	"fmt"
	"io"
)

// ReadCommand performs one read of up to MaxMessageSize bytes and decodes
// it. io.EOF is returned unchanged when the peer has closed the connection.
func ReadCommand(r io.Reader) (Command, []byte, error) {
	buf := make([]byte, MaxMessageSize)
	n, err := r.Read(buf)
	if n == 0 {
		if err == nil {
			err = io.ErrNoProgress
		}
		return Command{}, nil, err
	}
	raw := buf[:n]
	cmd, derr := Decode(raw)
	if derr != nil {
		return Command{}, raw, derr
	}
	return cmd, raw, nil
}

// WriteAck sends the acknowledgment token.
func WriteAck(w io.Writer) error {
	if _, err := io.WriteString(w, AckToken); err != nil {
		return fmt.Errorf("protocol: write ack: %w", err)
	}
	return nil
}
