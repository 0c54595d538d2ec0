// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sampling

import (
	"context"
	"fmt"
	"time"

	"github.com/relabs-tech/inertial_mouse/internal/imu"
	"github.com/relabs-tech/inertial_mouse/internal/log"
)

// Loop polls a sensor at a fixed interval and feeds the queue.
type Loop struct {
	sensor   *imu.Sensor
	queue    *Queue
	interval time.Duration

	// clock returns monotonic seconds; replaced in tests.
	clock func() float64
}

// NewLoop creates a sampling loop. interval is the target tick period
// (10ms for 100 Hz).
func NewLoop(sensor *imu.Sensor, queue *Queue, interval time.Duration) *Loop {
	start := time.Now()
	return &Loop{
		sensor:   sensor,
		queue:    queue,
		interval: interval,
		clock:    func() float64 { return time.Since(start).Seconds() },
	}
}

// Run enables the sensor and samples until ctx is cancelled. The sensor
// is disabled before Run returns. Only a failure to enable is returned.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.sensor.Enable(); err != nil {
		return fmt.Errorf("sampling: %w", err)
	}
	defer func() {
		if err := l.sensor.Disable(); err != nil {
			log.Warn("sampling: failed to disable sensor", "sensor", l.sensor.Name(), "err", err)
		}
	}()

	log.Info("sampling: loop started", "sensor", l.sensor.Name(), "interval", l.interval)
	defer log.Info("sampling: loop stopped", "sensor", l.sensor.Name())

	for {
		if ctx.Err() != nil {
			return nil
		}
		started := time.Now()

		l.queue.Push(imu.SensorReading{
			Timestamp: l.clock(),
			Data:      l.sensor.Read(),
		})

		// Single-tick compensation only; drift across ticks is accepted.
		wait := l.interval - time.Since(started)
		if wait <= 0 {
			continue
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}
