// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package calibration computes accelerometer offset, gains and mounting
// angles from a seven pose static procedure.
package calibration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/relabs-tech/inertial_mouse/internal/imu"
)

// Gravity is the reference magnitude the gains are normalized to.
const Gravity = imu.Gravity

// Steps are the operator instructions, in capture order. Compute
// relies on this order.
var Steps = []string{
	"Lay flat",
	"Rotate 180°",
	"Lay on the left side",
	"Rotate 180°",
	"Lay vertical",
	"Rotate 180° upside-down",
	"Lay face down",
}

var ErrNoSamples = errors.New("calibration: no samples captured")

// PoseStats summarizes one captured pose.
type PoseStats struct {
	Samples int      `json:"samples"`
	Mean    imu.Vec3 `json:"mean"`
	StdDev  imu.Vec3 `json:"stddev"`
}

func ComputeStats(values []imu.Vec3) (PoseStats, error) {
	if len(values) == 0 {
		return PoseStats{}, ErrNoSamples
	}
	st := PoseStats{Samples: len(values)}
	axis := make([]float64, len(values))
	for d := 0; d < 3; d++ {
		for i, v := range values {
			axis[i] = v[d]
		}
		st.Mean[d], st.StdDev[d] = stat.PopMeanStdDev(axis, nil)
	}
	return st, nil
}

// Compute derives the calibration from the mean reading of each step in
// Steps. The opposite pose pairs give offset and gain per axis; the
// residual tilt of the flat and side poses gives the mounting angles in
// degrees.
func Compute(means []imu.Vec3) (*imu.Calibration, error) {
	if len(means) != len(Steps) {
		return nil, fmt.Errorf("calibration: need %d pose means, got %d", len(Steps), len(means))
	}

	offset := imu.Vec3{
		(means[2][0] + means[3][0]) / 2,
		(means[4][1] + means[5][1]) / 2,
		(means[0][2] + means[6][2]) / 2,
	}
	gains := imu.Vec3{
		(means[2][0] - means[3][0]) / (2 * Gravity),
		(means[4][1] - means[5][1]) / (2 * Gravity),
		(means[0][2] - means[6][2]) / (2 * Gravity),
	}
	for d, g := range gains {
		if g == 0 {
			return nil, fmt.Errorf("calibration: opposite poses read the same on axis %d", d)
		}
	}

	tilt := make([]imu.Vec3, len(means))
	for i, m := range means {
		var c imu.Vec3
		for d := range m {
			c[d] = (m[d] - offset[d]) / gains[d]
		}
		n := c.Norm()
		if n == 0 {
			return nil, fmt.Errorf("calibration: pose %d has no gravity component", i)
		}
		for d := range c {
			tilt[i][d] = math.Asin(c[d]/n) * 180 / math.Pi
		}
	}

	angles := imu.Vec3{
		(tilt[0][0] + tilt[1][0]) / 2,
		-(tilt[0][1] + tilt[1][1]) / 2,
		-(tilt[3][1] - tilt[2][1]) / 2,
	}
	return imu.NewCalibration(offset, gains, angles)
}

// Capture reads src every period until dur elapses. Unavailable and
// incomplete readings (any zero axis) are skipped.
func Capture(ctx context.Context, src imu.RawSource, dur, period time.Duration) ([]imu.Vec3, error) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	deadline := time.NewTimer(dur)
	defer deadline.Stop()

	var values []imu.Vec3
	for {
		select {
		case <-ctx.Done():
			return values, ctx.Err()
		case <-deadline.C:
			if len(values) == 0 {
				return nil, ErrNoSamples
			}
			return values, nil
		case <-ticker.C:
			v, err := src.ReadRaw()
			if err != nil {
				if errors.Is(err, imu.ErrNoData) {
					continue
				}
				return values, fmt.Errorf("calibration: read %s: %w", src.Name(), err)
			}
			if v[0] == 0 || v[1] == 0 || v[2] == 0 || !v.Valid() {
				continue
			}
			values = append(values, v)
		}
	}
}

// Write stores cal in the JSON layout imu.LoadCalibration reads.
func Write(path string, cal *imu.Calibration) error {
	b, err := json.MarshalIndent(cal, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, append(b, '\n'), 0o644); err != nil {
		return fmt.Errorf("calibration: write %s: %w", path, err)
	}
	return nil
}
