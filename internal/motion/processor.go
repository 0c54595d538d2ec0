// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package motion runs the client side pipeline: sampling loop, filter
// cascade and command transport.
package motion

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/relabs-tech/inertial_mouse/internal/filter"
	"github.com/relabs-tech/inertial_mouse/internal/imu"
	"github.com/relabs-tech/inertial_mouse/internal/log"
	"github.com/relabs-tech/inertial_mouse/internal/protocol"
	"github.com/relabs-tech/inertial_mouse/internal/sampling"
)

// ErrAlreadyRunning is returned by Run on a processor that is running.
var ErrAlreadyRunning = errors.New("motion: processor already running")

type State int32

const (
	Stopped State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "RUNNING"
	}
	return "STOPPED"
}

// Transport carries commands to the pointer server. Exchange blocks for
// one full request/ack round trip.
type Transport interface {
	Exchange(cmd protocol.Command) error
	Close() error
}

// DialFunc opens a Transport for one processing session.
type DialFunc func(ctx context.Context) (Transport, error)

// Params configures a Processor.
type Params struct {
	Filter         filter.Params
	SampleInterval time.Duration
	QueueCapacity  int
	PopTimeout     time.Duration // how long one queue wait may block
	MotionGain     float64       // velocity -> move scale
}

func DefaultParams() Params {
	return Params{
		Filter:         filter.DefaultParams(),
		SampleInterval: 10 * time.Millisecond,
		QueueCapacity:  sampling.DefaultCapacity,
		PopTimeout:     50 * time.Millisecond,
		MotionGain:     1,
	}
}

// Processor consumes sensor readings and sends motion commands.
type Processor struct {
	sensor *imu.Sensor
	dial   DialFunc
	clicks *ClickLatch
	params Params

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	done   chan struct{}
	queue  *sampling.Queue
	sent   uint64
}

func NewProcessor(sensor *imu.Sensor, dial DialFunc, clicks *ClickLatch, params Params) *Processor {
	if clicks == nil {
		clicks = &ClickLatch{}
	}
	return &Processor{
		sensor: sensor,
		dial:   dial,
		clicks: clicks,
		params: params,
	}
}

// State reports whether the processor is running.
func (p *Processor) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Queue returns the sample queue of the current or last session.
func (p *Processor) Queue() *sampling.Queue {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queue
}

// Sent returns how many commands were acknowledged in the last session.
func (p *Processor) Sent() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sent
}

// Stop requests the running session to end and waits until the sampling
// loop has been joined. It is a no-op when stopped.
func (p *Processor) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Run executes one processing session. It returns nil when stopped via
// ctx or Stop, and the failure otherwise. The sampling loop has exited
// and the sensor is disabled by the time Run returns.
func (p *Processor) Run(ctx context.Context) error {
	p.mu.Lock()
	if p.state == Running {
		p.mu.Unlock()
		return ErrAlreadyRunning
	}
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.state, p.cancel, p.done, p.sent = Running, cancel, done, 0
	p.mu.Unlock()

	logger := log.With("session", uuid.NewString())
	defer func() {
		cancel()
		p.mu.Lock()
		p.state, p.cancel = Stopped, nil
		p.mu.Unlock()
		close(done)
		logger.Info("motion: processor stopped")
	}()

	transport, err := p.dial(runCtx)
	if err != nil {
		logger.Error("motion: connect failed", "err", err)
		return err
	}
	var closeOnce sync.Once
	closeTransport := func() {
		closeOnce.Do(func() {
			if err := transport.Close(); err != nil {
				logger.Warn("motion: transport close failed", "err", err)
			}
		})
	}
	defer closeTransport()
	// A blocked Exchange only returns once the connection is closed.
	go func() {
		<-runCtx.Done()
		closeTransport()
	}()

	cascade := filter.NewCascade(p.params.Filter)
	queue := sampling.NewQueue(p.params.QueueCapacity)
	p.mu.Lock()
	p.queue = queue
	p.mu.Unlock()

	loop := sampling.NewLoop(p.sensor, queue, p.params.SampleInterval)
	loopCtx, stopLoop := context.WithCancel(runCtx)
	loopDone := make(chan struct{})
	var loopErr error
	go func() {
		defer close(loopDone)
		loopErr = loop.Run(loopCtx)
	}()
	join := func() {
		stopLoop()
		<-loopDone
	}

	cascade.Reset()
	logger.Info("motion: processor running", "interval", p.params.SampleInterval, "queue", queue.Cap())

	for {
		select {
		case <-runCtx.Done():
			join()
			return nil
		case <-loopDone:
			join()
			if loopErr != nil {
				logger.Error("motion: sampling failed", "err", loopErr)
				return loopErr
			}
			return errors.New("motion: sampling loop exited unexpectedly")
		default:
		}

		r, ok := queue.Pop(p.params.PopTimeout)
		if !ok {
			continue
		}
		out := cascade.Apply(r.Data)
		cmd := p.command(out)

		if err := transport.Exchange(cmd); err != nil {
			join()
			if runCtx.Err() != nil {
				return nil
			}
			logger.Error("motion: transport failed, stopping", "err", err, "sample_t", r.Timestamp)
			return fmt.Errorf("motion: %w", err)
		}
		p.mu.Lock()
		p.sent++
		p.mu.Unlock()
	}
}

// command builds the wire command. Plot data carries velocity, smoothed
// acceleration and its step delta, three values each.
func (p *Processor) command(out filter.Output) protocol.Command {
	move := out.Velocity.Scale(p.params.MotionGain)
	plotData := make([]float64, 0, 9)
	plotData = append(plotData, out.Velocity[:]...)
	plotData = append(plotData, out.Smoothed[:]...)
	plotData = append(plotData, out.Delta[:]...)
	return protocol.Command{
		Move:     move,
		Click:    p.clicks.Take(),
		PlotData: plotData,
	}
}
