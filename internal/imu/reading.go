// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/relabs-tech/inertial_mouse/internal/log"
)

// ErrNoData is returned by a RawSource that has no complete sample to offer.
var ErrNoData = errors.New("imu: no data")

// SensorReading is a single timestamped accelerometer sample.
type SensorReading struct {
	Timestamp float64 `json:"t"`    // monotonic seconds
	Data      Vec3    `json:"data"` // m/s², calibrated
}

// RawSource is a physical or simulated 3-axis accelerometer.
// ReadRaw either yields a full vector or ErrNoData.
type RawSource interface {
	Name() string
	Enable() error
	Disable() error
	ReadRaw() (Vec3, error)
}

// readWarnInterval limits failed-read warnings to one per interval.
const readWarnInterval = time.Second

// Sensor applies calibration to a RawSource.
type Sensor struct {
	src RawSource
	cal *Calibration

	mu       sync.Mutex
	failures uint64
	lastWarn time.Time
}

// NewSensor wraps src. cal may be nil, in which case readings pass through.
func NewSensor(src RawSource, cal *Calibration) *Sensor {
	return &Sensor{src: src, cal: cal}
}

func (s *Sensor) Name() string { return s.src.Name() }

func (s *Sensor) Enable() error {
	if err := s.src.Enable(); err != nil {
		return fmt.Errorf("%s: enable: %w", s.src.Name(), err)
	}
	return nil
}

func (s *Sensor) Disable() error {
	if err := s.src.Disable(); err != nil {
		return fmt.Errorf("%s: disable: %w", s.src.Name(), err)
	}
	return nil
}

// Read returns one corrected sample. Missing, partial or failed reads
// are replaced by a zero vector here and nowhere else.
func (s *Sensor) Read() Vec3 {
	raw, err := s.src.ReadRaw()
	if err == nil && !raw.Valid() {
		err = ErrNoData
	}
	if err != nil {
		s.readFailed(err)
		raw = Vec3{}
	}
	if s.cal == nil {
		return raw
	}
	return s.cal.Correct(raw)
}

func (s *Sensor) readFailed(err error) {
	s.mu.Lock()
	s.failures++
	total := s.failures
	warn := time.Since(s.lastWarn) >= readWarnInterval
	if warn {
		s.lastWarn = time.Now()
	}
	s.mu.Unlock()

	if warn {
		log.Warn("sensor read failed, using zero vector", "sensor", s.src.Name(), "err", err, "failures_total", total)
	}
}

// Failures returns how many reads were replaced by a zero vector.
func (s *Sensor) Failures() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failures
}
