// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import "math"

// Vec3 is a 3-axis quantity (x, y, z).
type Vec3 [3]float64

// Gravity is the magnitude of earth gravity in m/s².
const Gravity = 9.81

// EarthGravity is what a calibrated device reads lying flat at rest.
var EarthGravity = Vec3{0, 0, Gravity}

func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v[0] + o[0], v[1] + o[1], v[2] + o[2]}
}

func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v[0] - o[0], v[1] - o[1], v[2] - o[2]}
}

func (v Vec3) Scale(k float64) Vec3 {
	return Vec3{v[0] * k, v[1] * k, v[2] * k}
}

// Norm returns the euclidean length of v.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

// HorizontalNorm returns the length of the x,y part of v.
func (v Vec3) HorizontalNorm() float64 {
	return math.Hypot(v[0], v[1])
}

// Valid reports whether every component is a finite number.
func (v Vec3) Valid() bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// Tilt returns roll and pitch in degrees of a gravity reading, using
//
//	roll  = atan2(ay, az)
//	pitch = atan2(-ax, sqrt(ay² + az²))
//
// Yaw is not observable from the accelerometer alone.
func Tilt(a Vec3) (roll, pitch float64) {
	roll = math.Atan2(a[1], a[2]) * 180 / math.Pi
	pitch = math.Atan2(-a[0], math.Hypot(a[1], a[2])) * 180 / math.Pi
	return roll, pitch
}
