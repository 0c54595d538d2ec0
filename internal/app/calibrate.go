// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/relabs-tech/inertial_mouse/internal/calibration"
	"github.com/relabs-tech/inertial_mouse/internal/config"
	"github.com/relabs-tech/inertial_mouse/internal/imu"
	"github.com/relabs-tech/inertial_mouse/internal/log"
)

// CalibrationTiming controls how long each pose is captured.
type CalibrationTiming struct {
	Capture time.Duration
	Period  time.Duration
}

var DefaultCalibrationTiming = CalibrationTiming{
	Capture: 5 * time.Second,
	Period:  50 * time.Millisecond,
}

// RunCalibration opens the configured source without any correction and
// runs the guided procedure, writing the result to outPath.
func RunCalibration(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer, outPath string) error {
	src, cleanup, err := OpenSource(cfg)
	defer cleanup()
	if err != nil {
		return err
	}
	cal, err := GuidedCalibration(ctx, src, in, out, DefaultCalibrationTiming)
	if err != nil {
		return err
	}
	if err := calibration.Write(outPath, cal); err != nil {
		return err
	}
	fmt.Fprintf(out, "\nWrote: %s\n", outPath)
	return nil
}

// GuidedCalibration prompts for each pose on out, waits for ENTER on in,
// captures the pose and computes the calibration.
func GuidedCalibration(ctx context.Context, src imu.RawSource, in io.Reader, out io.Writer, timing CalibrationTiming) (*imu.Calibration, error) {
	if err := src.Enable(); err != nil {
		return nil, fmt.Errorf("calibration: enable %s: %w", src.Name(), err)
	}
	defer func() {
		if err := src.Disable(); err != nil {
			log.Warn("calibration: disable failed", "err", err)
		}
	}()

	reader := bufio.NewReader(in)
	fmt.Fprintln(out, "=== Guided Accelerometer Calibration ===")
	fmt.Fprintf(out, "Source: %s. Keep the device still during each capture.\n\n", src.Name())

	means := make([]imu.Vec3, 0, len(calibration.Steps))
	for i, step := range calibration.Steps {
		fmt.Fprintf(out, "Step %d/%d: %s\n", i+1, len(calibration.Steps), step)
		fmt.Fprintf(out, "Press ENTER to capture (%s)...", timing.Capture)
		if _, err := reader.ReadString('\n'); err != nil {
			return nil, fmt.Errorf("calibration: waiting for ENTER: %w", err)
		}

		values, err := calibration.Capture(ctx, src, timing.Capture, timing.Period)
		if err != nil {
			return nil, err
		}
		st, err := calibration.ComputeStats(values)
		if err != nil {
			return nil, err
		}
		roll, pitch := imu.Tilt(st.Mean)
		fmt.Fprintf(out, "  samples=%d mean=(%.3f, %.3f, %.3f) std=(%.3f, %.3f, %.3f) roll=%.1f pitch=%.1f\n",
			st.Samples, st.Mean[0], st.Mean[1], st.Mean[2], st.StdDev[0], st.StdDev[1], st.StdDev[2], roll, pitch)
		means = append(means, st.Mean)
	}

	cal, err := calibration.Compute(means)
	if err != nil {
		return nil, err
	}
	b, err := json.MarshalIndent(cal, "", "  ")
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(out, "\n%s\n", b)
	return cal, nil
}
