// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/relabs-tech/inertial_mouse/internal/imu"
)

// SimSource generates smooth accelerations on x and y of a flat device,
// with gravity on z, so the whole pipeline can run without hardware.
type SimSource struct {
	Amplitude float64 // m/s²
	Period    time.Duration
	Noise     float64 // standard deviation added to each axis

	mu    sync.Mutex
	start time.Time
	rng   *rand.Rand
	now   func() time.Time
}

func NewSimSource(amplitude float64, period time.Duration, noise float64) *SimSource {
	return &SimSource{
		Amplitude: amplitude,
		Period:    period,
		Noise:     noise,
		rng:       rand.New(rand.NewSource(1)),
		now:       time.Now,
	}
}

func (s *SimSource) Name() string { return "sim" }

func (s *SimSource) Enable() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.start = s.now()
	return nil
}

func (s *SimSource) Disable() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.start = time.Time{}
	return nil
}

func (s *SimSource) ReadRaw() (imu.Vec3, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.start.IsZero() {
		return imu.Vec3{}, imu.ErrNoData
	}
	elapsed := s.now().Sub(s.start).Seconds()
	w := 2 * math.Pi / s.Period.Seconds()

	v := imu.Vec3{
		s.Amplitude * math.Sin(w*elapsed),
		s.Amplitude * math.Cos(w*elapsed*0.7),
		imu.Gravity,
	}
	if s.Noise > 0 {
		for i := range v {
			v[i] += s.rng.NormFloat64() * s.Noise
		}
	}
	return v, nil
}

// RandomSource returns Bias plus uniform noise in [-Scale, Scale) on
// every axis.
type RandomSource struct {
	Bias  imu.Vec3
	Scale float64

	mu  sync.Mutex
	rng *rand.Rand
}

func NewRandomSource(bias imu.Vec3, scale float64, seed int64) *RandomSource {
	return &RandomSource{Bias: bias, Scale: scale, rng: rand.New(rand.NewSource(seed))}
}

func (s *RandomSource) Name() string   { return "random" }
func (s *RandomSource) Enable() error  { return nil }
func (s *RandomSource) Disable() error { return nil }

func (s *RandomSource) ReadRaw() (imu.Vec3, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var v imu.Vec3
	for i := range v {
		v[i] = s.Bias[i] + (2*s.rng.Float64()-1)*s.Scale
	}
	return v, nil
}
