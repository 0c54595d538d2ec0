// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package filter turns raw acceleration into a smoothed velocity estimate.
//
// A Cascade removes gravity and runs three stages per sample:
//
//	LowPass -> RollingAverage -> VelocityEstimator
//
// All types here are single-goroutine.
package filter

import "github.com/relabs-tech/inertial_mouse/internal/imu"

// Params configures every stage of a Cascade.
type Params struct {
	LowPassAlpha float64
	Window       int
	Estimator    EstimatorParams

	// Gravity is subtracted from every input. Zero disables compensation.
	Gravity imu.Vec3
}

func DefaultParams() Params {
	return Params{
		LowPassAlpha: 1,
		Window:       10,
		Estimator:    DefaultEstimatorParams(),
	}
}

// Output is the result of one Cascade step.
type Output struct {
	Smoothed imu.Vec3 // gravity-free acceleration after low-pass and rolling average
	Velocity imu.Vec3
	Delta    imu.Vec3 // Smoothed minus the previous Smoothed
}

type Cascade struct {
	lowPass   *LowPass
	average   *RollingAverage
	estimator *VelocityEstimator
	gravity   imu.Vec3

	prev    imu.Vec3
	hasPrev bool
}

func NewCascade(p Params) *Cascade {
	return &Cascade{
		lowPass:   NewLowPass(p.LowPassAlpha),
		average:   NewRollingAverage(p.Window),
		estimator: NewVelocityEstimator(p.Estimator),
		gravity:   p.Gravity,
	}
}

func (c *Cascade) Apply(accel imu.Vec3) Output {
	smoothed := c.average.Apply(c.lowPass.Apply(accel.Sub(c.gravity)))
	velocity := c.estimator.Apply(smoothed)

	var delta imu.Vec3
	if c.hasPrev {
		delta = smoothed.Sub(c.prev)
	}
	c.prev = smoothed
	c.hasPrev = true

	return Output{Smoothed: smoothed, Velocity: velocity, Delta: delta}
}

// Reset clears every stage and the cached previous sample.
func (c *Cascade) Reset() {
	c.lowPass.Reset()
	c.average.Reset()
	c.estimator.Reset()
	c.prev = imu.Vec3{}
	c.hasPrev = false
}
