// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package filter

import "github.com/relabs-tech/inertial_mouse/internal/imu"

// LowPass is a first-order exponential smoother:
//
//	y = y + alpha * (x - y)
//
// alpha = 1 passes samples through unchanged.
type LowPass struct {
	alpha float64
	prev  imu.Vec3
}

func NewLowPass(alpha float64) *LowPass {
	if alpha <= 0 || alpha > 1 {
		alpha = 1
	}
	return &LowPass{alpha: alpha}
}

func (f *LowPass) Apply(x imu.Vec3) imu.Vec3 {
	f.prev = f.prev.Add(x.Sub(f.prev).Scale(f.alpha))
	return f.prev
}

func (f *LowPass) Reset() {
	f.prev = imu.Vec3{}
}

// RollingAverage returns the component-wise mean of the last W samples.
// The window starts filled with zero vectors.
type RollingAverage struct {
	window []imu.Vec3
	next   int
}

func NewRollingAverage(w int) *RollingAverage {
	if w < 1 {
		w = 1
	}
	return &RollingAverage{window: make([]imu.Vec3, w)}
}

// Size returns the window length.
func (r *RollingAverage) Size() int { return len(r.window) }

func (r *RollingAverage) Apply(x imu.Vec3) imu.Vec3 {
	r.window[r.next] = x
	r.next = (r.next + 1) % len(r.window)

	var sum imu.Vec3
	for _, v := range r.window {
		sum = sum.Add(v)
	}
	return sum.Scale(1 / float64(len(r.window)))
}

func (r *RollingAverage) Reset() {
	for i := range r.window {
		r.window[i] = imu.Vec3{}
	}
	r.next = 0
}
