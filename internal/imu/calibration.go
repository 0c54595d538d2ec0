// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// Calibration holds per-axis correction coefficients produced by the
// calibration tool. It is read-only after load.
//
//	corrected = Rᵀ(angles) · ((raw - offset) / gains)
//
// where R = Rz(yaw)·Ry(pitch)·Rx(roll) is the mounting rotation.
type Calibration struct {
	Offset Vec3 `json:"offset"`
	Gains  Vec3 `json:"gains"`
	Angles Vec3 `json:"angles"` // roll, pitch, yaw in degrees
}

// NewCalibration validates the coefficients.
func NewCalibration(offset, gains, angles Vec3) (*Calibration, error) {
	for i, g := range gains {
		if g == 0 || math.IsNaN(g) || math.IsInf(g, 0) {
			return nil, fmt.Errorf("calibration: gain %d must be non-zero and finite, got %v", i, g)
		}
	}
	return &Calibration{Offset: offset, Gains: gains, Angles: angles}, nil
}

// LoadCalibration reads a calibration JSON file.
func LoadCalibration(path string) (*Calibration, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read calibration file: %w", err)
	}
	var raw struct {
		Offset *Vec3 `json:"offset"`
		Gains  *Vec3 `json:"gains"`
		Angles *Vec3 `json:"angles"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse calibration file %s: %w", path, err)
	}
	if raw.Offset == nil || raw.Gains == nil {
		return nil, fmt.Errorf("calibration file %s: offset and gains are required", path)
	}
	var angles Vec3
	if raw.Angles != nil {
		angles = *raw.Angles
	}
	return NewCalibration(*raw.Offset, *raw.Gains, angles)
}

// Correct applies offset, gain and mounting rotation to a raw sample.
func (c *Calibration) Correct(raw Vec3) Vec3 {
	var scaled Vec3
	for i := range raw {
		scaled[i] = (raw[i] - c.Offset[i]) / c.Gains[i]
	}
	if c.Angles == (Vec3{}) {
		return scaled
	}
	r := mountRotation(c.Angles)
	var out Vec3
	for i := 0; i < 3; i++ {
		// transpose: column i of R
		out[i] = r[0][i]*scaled[0] + r[1][i]*scaled[1] + r[2][i]*scaled[2]
	}
	return out
}

func mountRotation(angles Vec3) [3][3]float64 {
	rad := angles.Scale(math.Pi / 180)
	sr, cr := math.Sincos(rad[0])
	sp, cp := math.Sincos(rad[1])
	sy, cy := math.Sincos(rad[2])
	return [3][3]float64{
		{cy * cp, cy*sp*sr - sy*cr, cy*sp*cr + sy*sr},
		{sy * cp, sy*sp*sr + cy*cr, sy*sp*cr - cy*sr},
		{-sp, cp * sr, cp * cr},
	}
}
