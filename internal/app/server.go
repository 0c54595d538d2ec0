// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/relabs-tech/inertial_mouse/internal/config"
	"github.com/relabs-tech/inertial_mouse/internal/display"
	"github.com/relabs-tech/inertial_mouse/internal/log"
	"github.com/relabs-tech/inertial_mouse/internal/plot"
	"github.com/relabs-tech/inertial_mouse/internal/pointer"
	"github.com/relabs-tech/inertial_mouse/internal/protocol"
)

// Screen shows a few lines of status text.
type Screen interface {
	Show(lines []string) error
}

// Server applies motion commands from one client at a time.
type Server struct {
	Pointer      pointer.Pointer
	Speed        float64
	DecodePolicy string // config.DecodePolicyClose or config.DecodePolicySkip

	// Optional outputs.
	Plot           plot.Sink
	Screen         Screen
	ScreenInterval time.Duration

	seq        uint64
	lastScreen time.Time
}

// Serve accepts connections from ln until ctx is cancelled. Each
// connection is served to completion before the next accept. Failed
// accepts are retried with a growing delay; Serve only gives up when ln
// is closed underneath it.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()

	bo := acceptBackoff()
	for {
		s.showStatus(true, "Waiting...", 0, 0)
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return fmt.Errorf("server: accept: %w", err)
			}
			wait := bo.NextBackOff()
			log.Warn("server: accept failed, retrying", "err", err, "retry_in", wait)
			t := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				t.Stop()
				return nil
			case <-t.C:
			}
			continue
		}
		bo.Reset()
		s.serveConn(ctx, conn)
	}
}

func acceptBackoff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 5 * time.Millisecond
	bo.MaxInterval = time.Second
	bo.MaxElapsedTime = 0
	return bo
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	logger := log.With("conn", uuid.NewString(), "remote", conn.RemoteAddr().String())
	logger.Info("server: connection accepted")

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()
	defer conn.Close()

	var served uint64
	for {
		cmd, raw, err := protocol.ReadCommand(conn)
		if err != nil {
			if !s.keepServing(logger, err, raw) {
				logger.Info("server: connection closed", "commands", served)
				return
			}
			continue
		}
		if err := protocol.WriteAck(conn); err != nil {
			logger.Warn("server: ack failed", "err", err)
			logger.Info("server: connection closed", "commands", served)
			return
		}
		served++
		s.apply(logger, cmd)
	}
}

// keepServing logs a failed read and reports whether the connection
// stays open.
func (s *Server) keepServing(logger *slog.Logger, err error, raw []byte) bool {
	switch {
	case errors.Is(err, io.EOF):
		logger.Info("server: client disconnected")
		return false
	case errors.Is(err, protocol.ErrDecode), errors.Is(err, protocol.ErrOversized):
		skip := s.DecodePolicy == config.DecodePolicySkip
		logger.Warn("server: undecodable command", "err", err, "bytes", len(raw), "skip", skip)
		return skip
	default:
		logger.Warn("server: read failed", "err", err)
		return false
	}
}

func (s *Server) apply(logger *slog.Logger, cmd protocol.Command) {
	if err := pointer.Apply(s.Pointer, cmd, s.Speed); err != nil {
		logger.Error("server: pointer apply failed", "err", err)
	}

	dx, dy := pointer.Delta(cmd, s.Speed)
	s.seq++
	if s.Plot != nil {
		err := s.Plot.Publish(plot.Sample{
			Seq:   s.seq,
			Time:  time.Now(),
			DX:    float64(dx),
			DY:    float64(-dy),
			Click: cmd.Click,
			Data:  cmd.PlotData,
		})
		if err != nil {
			logger.Warn("server: plot publish failed", "err", err)
		}
	}
	s.showStatus(false, "Connected", dx, dy)
}

func (s *Server) showStatus(force bool, state string, dx, dy int) {
	if s.Screen == nil {
		return
	}
	now := time.Now()
	if !force && now.Sub(s.lastScreen) < s.ScreenInterval {
		return
	}
	s.lastScreen = now
	lines := []string{
		"Inertial Mouse",
		state,
		fmt.Sprintf("dx%5d dy%5d", dx, dy),
		fmt.Sprintf("cmds %d", s.seq),
	}
	if err := s.Screen.Show(lines); err != nil {
		log.Warn("display: update failed", "err", err)
	}
}

// RunServer listens on the configured address and applies commands to
// the configured pointer until ctx is cancelled. Plotting and the OLED
// are best effort: when unavailable the server runs without them.
func RunServer(ctx context.Context, cfg *config.Config) error {
	ptr, err := OpenPointer(cfg)
	if err != nil {
		return err
	}
	defer ptr.Close()

	srv := &Server{
		Pointer:        ptr,
		Speed:          cfg.MouseSpeed,
		DecodePolicy:   cfg.DecodeErrorPolicy,
		ScreenInterval: time.Duration(cfg.DisplayUpdateInterval) * time.Millisecond,
	}

	client, err := plot.Connect(cfg.MQTTBroker, cfg.MQTTClientIDServer)
	if err != nil {
		log.Warn("server: plotting disabled", "err", err)
	} else {
		defer client.Disconnect(250)
		srv.Plot = plot.NewMQTTSink(client, cfg.TopicPlot)
	}

	if cfg.DisplayEnabled {
		panel, err := display.OpenPanel()
		if err != nil {
			log.Warn("server: display disabled", "err", err)
		} else {
			defer panel.Close()
			srv.Screen = panel
		}
	}

	ln, err := net.Listen("tcp", cfg.ServerAddress)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", cfg.ServerAddress, err)
	}
	log.Info("server: waiting for connection", "addr", ln.Addr().String(), "speed", cfg.MouseSpeed)
	return srv.Serve(ctx, ln)
}
