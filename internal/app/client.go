// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"bufio"
	"context"
	"io"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/relabs-tech/inertial_mouse/internal/config"
	"github.com/relabs-tech/inertial_mouse/internal/log"
	"github.com/relabs-tech/inertial_mouse/internal/motion"
	"github.com/relabs-tech/inertial_mouse/internal/protocol"
)

// RunClient samples the configured sensor and streams motion commands to
// the pointer server until ctx is cancelled. Every failed session is
// followed by a fresh one after an exponential backoff. Click intents
// are read from in, one per line ("l" or "r").
func RunClient(ctx context.Context, cfg *config.Config, in io.Reader) error {
	sensor, cleanup, err := OpenSensor(cfg)
	defer cleanup()
	if err != nil {
		return err
	}

	clicks := &motion.ClickLatch{}
	if in != nil {
		go ReadClicks(in, clicks)
	}

	dial := func(ctx context.Context) (motion.Transport, error) {
		c, err := protocol.Dial(ctx, cfg.ServerAddress, cfg.ConnectTimeout(), cfg.AckTimeout())
		if err != nil {
			return nil, err
		}
		log.Info("client: connected", "server", c.RemoteAddr().String())
		return c, nil
	}
	proc := motion.NewProcessor(sensor, dial, clicks, cfg.MotionParams())

	return runWithReconnect(ctx, proc, newBackoff(cfg))
}

func newBackoff(cfg *config.Config) *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxInterval = cfg.ReconnectMax()
	bo.MaxElapsedTime = 0
	return bo
}

type session interface {
	Run(ctx context.Context) error
	Sent() uint64
}

func runWithReconnect(ctx context.Context, s session, bo backoff.BackOff) error {
	for {
		err := s.Run(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if s.Sent() > 0 {
			bo.Reset()
		}
		wait := bo.NextBackOff()
		if wait == backoff.Stop {
			return err
		}
		log.Warn("client: session ended, reconnecting", "err", err, "sent", s.Sent(), "retry_in", wait)

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
	}
}

// ReadClicks latches a click for every "l"/"left" or "r"/"right" line
// until in is exhausted.
func ReadClicks(in io.Reader, clicks *motion.ClickLatch) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "l", "left":
			clicks.Press(protocol.Left)
		case "r", "right":
			clicks.Press(protocol.Right)
		case "":
		default:
			log.Warn("client: unknown input, use l or r", "input", scanner.Text())
		}
	}
	if err := scanner.Err(); err != nil {
		log.Warn("client: click input error", "err", err)
	}
}
