// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package motion

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/relabs-tech/inertial_mouse/internal/imu"
	"github.com/relabs-tech/inertial_mouse/internal/protocol"
)

type constSource struct {
	mu       sync.Mutex
	accel    imu.Vec3
	enabled  bool
	disabled int
}

func (s *constSource) Name() string { return "const" }

func (s *constSource) Enable() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = true
	return nil
}

func (s *constSource) Disable() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = false
	s.disabled++
	return nil
}

func (s *constSource) ReadRaw() (imu.Vec3, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accel, nil
}

func (s *constSource) state() (bool, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled, s.disabled
}

type fakeTransport struct {
	mu        sync.Mutex
	cmds      []protocol.Command
	failAfter int
	block     bool
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{closed: make(chan struct{})}
}

func (t *fakeTransport) Exchange(cmd protocol.Command) error {
	if t.block {
		<-t.closed
		return errors.New("use of closed connection")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cmds = append(t.cmds, cmd)
	if t.failAfter > 0 && len(t.cmds) >= t.failAfter {
		return &protocol.TransportError{Op: "ack", Err: protocol.ErrBadAck}
	}
	return nil
}

func (t *fakeTransport) Close() error {
	t.closeOnce.Do(func() { close(t.closed) })
	return nil
}

func (t *fakeTransport) commands() []protocol.Command {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]protocol.Command(nil), t.cmds...)
}

func dialTo(t Transport) DialFunc {
	return func(context.Context) (Transport, error) { return t, nil }
}

func testParams() Params {
	p := DefaultParams()
	p.SampleInterval = time.Millisecond
	p.PopTimeout = 5 * time.Millisecond
	p.Filter.Estimator.Dt = 0.001
	return p
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestClickLatchDeliversOnce(t *testing.T) {
	var l ClickLatch
	l.Press(protocol.Right)
	l.Press(protocol.Button(7))
	if got := l.Take(); got != [2]bool{false, true} {
		t.Fatalf("Take() = %v", got)
	}
	if got := l.Take(); got != [2]bool{} {
		t.Fatalf("second Take() = %v, want cleared", got)
	}
}

func TestProcessorSendsScaledVelocity(t *testing.T) {
	src := &constSource{accel: imu.Vec3{1, 0, 0}}
	tr := newFakeTransport()
	clicks := &ClickLatch{}
	clicks.Press(protocol.Left)

	params := testParams()
	params.MotionGain = 2
	p := NewProcessor(imu.NewSensor(src, nil), dialTo(tr), clicks, params)

	done := make(chan error, 1)
	go func() { done <- p.Run(context.Background()) }()

	waitFor(t, "20 commands", func() bool { return len(tr.commands()) >= 20 })
	if p.State() != Running {
		t.Errorf("State() = %v, want RUNNING", p.State())
	}
	p.Stop()
	if err := <-done; err != nil {
		t.Fatalf("Run() = %v", err)
	}
	if p.State() != Stopped {
		t.Errorf("State() = %v after Stop", p.State())
	}
	if enabled, disabled := src.state(); enabled || disabled != 1 {
		t.Errorf("sensor enabled=%v disabled=%d", enabled, disabled)
	}

	cmds := tr.commands()
	if cmds[0].Click != [2]bool{true, false} {
		t.Errorf("first click = %v, want left", cmds[0].Click)
	}
	for i, c := range cmds {
		if i > 0 && c.Click != [2]bool{} {
			t.Errorf("command %d repeats click %v", i, c.Click)
		}
		if len(c.PlotData) != 9 {
			t.Fatalf("command %d plot_data = %v", i, c.PlotData)
		}
		want := [3]float64{2 * c.PlotData[0], 2 * c.PlotData[1], 2 * c.PlotData[2]}
		if diff := cmp.Diff(want, c.Move); diff != "" {
			t.Errorf("command %d move mismatch (-want +got):\n%s", i, diff)
		}
	}
	last := cmds[len(cmds)-1]
	if last.Move[0] <= 0 {
		t.Errorf("x velocity did not grow under +x acceleration: %v", last.Move)
	}
	if diff := cmp.Diff([]float64{1, 0, 0, 0, 0, 0}, last.PlotData[3:], cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("settled acceleration and delta mismatch (-want +got):\n%s", diff)
	}
}

func TestProcessorStopsOnTransportFailure(t *testing.T) {
	src := &constSource{}
	tr := newFakeTransport()
	tr.failAfter = 3
	p := NewProcessor(imu.NewSensor(src, nil), dialTo(tr), nil, testParams())

	err := p.Run(context.Background())
	var te *protocol.TransportError
	if !errors.As(err, &te) || !errors.Is(err, protocol.ErrBadAck) {
		t.Fatalf("Run() = %v, want ack TransportError", err)
	}
	if p.State() != Stopped {
		t.Errorf("State() = %v", p.State())
	}
	if enabled, disabled := src.state(); enabled || disabled != 1 {
		t.Errorf("sensor enabled=%v disabled=%d", enabled, disabled)
	}
	if n := len(tr.commands()); n != 3 {
		t.Errorf("sent %d commands, want 3", n)
	}
}

func TestProcessorDialFailure(t *testing.T) {
	src := &constSource{}
	dialErr := &protocol.TransportError{Op: "dial", Err: errors.New("connection refused")}
	p := NewProcessor(imu.NewSensor(src, nil), func(context.Context) (Transport, error) {
		return nil, dialErr
	}, nil, testParams())

	if err := p.Run(context.Background()); !errors.Is(err, dialErr) {
		t.Fatalf("Run() = %v, want %v", err, dialErr)
	}
	if p.State() != Stopped {
		t.Errorf("State() = %v", p.State())
	}
	if _, disabled := src.state(); disabled != 0 {
		t.Errorf("sensor touched without a connection")
	}
}

func TestProcessorRejectsSecondRun(t *testing.T) {
	tr := newFakeTransport()
	p := NewProcessor(imu.NewSensor(&constSource{}, nil), dialTo(tr), nil, testParams())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()
	waitFor(t, "running", func() bool { return p.State() == Running })

	if err := p.Run(ctx); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Run() = %v, want ErrAlreadyRunning", err)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run() = %v", err)
	}
}

func TestProcessorBackpressureDropsOldest(t *testing.T) {
	src := &constSource{}
	tr := newFakeTransport()
	tr.block = true

	params := testParams()
	params.QueueCapacity = 8
	p := NewProcessor(imu.NewSensor(src, nil), dialTo(tr), nil, params)

	done := make(chan error, 1)
	go func() { done <- p.Run(context.Background()) }()

	waitFor(t, "queue overflow", func() bool {
		q := p.Queue()
		return q != nil && q.Len() == q.Cap() && q.Dropped() > 0
	})
	if q := p.Queue(); q.Len() > params.QueueCapacity {
		t.Errorf("queue length %d exceeds capacity", q.Len())
	}

	p.Stop()
	if err := <-done; err != nil {
		t.Fatalf("Run() = %v", err)
	}
	if p.Sent() != 0 {
		t.Errorf("Sent() = %d, want 0 with a stalled server", p.Sent())
	}
}
